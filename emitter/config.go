package emitter

import (
	"os"
	"strings"
)

// Config captures the environment kill-switches of spec.md §6 once, at
// emitter construction. The C++ source this was ported from cached these
// with function-local statics; per the "global mutable state" design note
// in spec.md §9, this module reads them once into a plain struct instead.
type Config struct {
	NeonCopy  bool
	NeonArith bool
	NeonLoop  bool
	SAMM      bool
}

// envBool mirrors spec.md §6: "1"/"true" enables (default), anything else
// disables.
func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "1" || v == "true"
}

// LoadConfig reads the NEON kill-switches from the process environment.
// SAMM is controlled by the caller (it is a compiler-flag concern external
// to the emitter's own env surface) through sammEnabled; the qbemit CLI's
// --samm flag passes true by default.
func LoadConfig(sammEnabled bool) Config {
	return Config{
		NeonCopy:  envBool("ENABLE_NEON_COPY", true),
		NeonArith: envBool("ENABLE_NEON_ARITH", true),
		NeonLoop:  envBool("ENABLE_NEON_LOOP", true),
		SAMM:      sammEnabled,
	}
}
