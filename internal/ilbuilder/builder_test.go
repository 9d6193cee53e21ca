package ilbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTempNeverCollidesWithinFunction(t *testing.T) {
	b := New()
	b.ResetFunction()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tmp := b.NewTemp()
		require.False(t, seen[tmp], "temp %s reused", tmp)
		seen[tmp] = true
	}
}

func TestResetFunctionRestartsCounters(t *testing.T) {
	b := New()
	b.ResetFunction()
	first := b.NewTemp()
	b.ResetFunction()
	second := b.NewTemp()
	require.Equal(t, first, second)
}

func TestRegisterStringIsContentAddressed(t *testing.T) {
	b := New()
	l1 := b.RegisterString("hello")
	l2 := b.RegisterString("world")
	l3 := b.RegisterString("hello")
	require.Equal(t, l1, l3)
	require.NotEqual(t, l1, l2)

	b.FlushDataSection()
	out := b.String()
	require.Equal(t, 1, strings.Count(out, l1+" ="))
}

func TestEmitBinaryFormat(t *testing.T) {
	b := New()
	b.EmitBinary("%t0", "w", "add", "%t1", "%t2")
	require.Contains(t, b.String(), "%t0 =w add %t1, %t2")
}

func TestEmitStoreFormat(t *testing.T) {
	b := New()
	b.EmitStore("storew", "%t0", "%t1")
	require.Contains(t, b.String(), "storew %t0, %t1")
}

func TestEmitCallFormatsCommaSeparatedTypedArgs(t *testing.T) {
	b := New()
	b.EmitCall("%t0", "l", "string_concat", []Arg{{Type: "l", Value: "%t1"}, {Type: "l", Value: "%t2"}})
	require.Contains(t, b.String(), "%t0 =l call $string_concat(l %t1, l %t2)")
}

func TestEmitAllocFormat(t *testing.T) {
	b := New()
	b.EmitAlloc("%t0", 8, 16)
	require.Contains(t, b.String(), "%t0 =l alloc8 16")
}
