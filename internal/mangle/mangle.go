// Package mangle is the Symbol Mapper: name mangling with stable prefixes,
// parameter/shared-variable tracking, unique label generation and the
// current-function context (spec.md §4.3).
package mangle

import (
	"strconv"
	"strings"
)

// sigils are the BASIC type-suffix characters the mangler strips to form a
// stable base name.
var sigils = []byte{'%', '$', '#', '!', '&', '@', '^'}

// typeSuffixes are the textual suffixes the mangler also strips.
var typeSuffixes = []string{"_INT", "_LONG", "_STRING", "_DOUBLE", "_FLOAT", "_BYTE", "_SHORT"}

// baseName strips a trailing sigil and/or a trailing type-suffix word to
// reach the stable identifier both a mangled and an already-mangled name
// share — this is what makes Mangle idempotent (spec.md §8 round-trip
// property).
func baseName(name string) string {
	for _, suf := range typeSuffixes {
		if strings.HasSuffix(name, suf) {
			name = strings.TrimSuffix(name, suf)
			break
		}
	}
	if n := len(name); n > 0 {
		for _, s := range sigils {
			if name[n-1] == s {
				name = name[:n-1]
				break
			}
		}
	}
	return name
}

// Mangle produces a stable, prefixed IL name for a source identifier.
// Mangle(Mangle(x)) == Mangle(x): feeding an already-mangled name back in
// strips the existing prefix before re-applying it, so the result is a
// fixed point.
func Mangle(name string, isGlobal bool) string {
	name = strings.TrimPrefix(name, "$")
	name = strings.TrimPrefix(name, "%")
	base := baseName(name)
	if isGlobal {
		return "$" + base
	}
	return "%" + base
}

// FuncContext tracks everything the Symbol Mapper needs to know about the
// function currently being emitted (spec.md §4.3 (b), §5 "per-function
// state bundle").
type FuncContext struct {
	Name            string
	Params          map[string]bool
	SharedVars      map[string]bool
	labelCounters   map[string]int
}

func NewFuncContext(name string) *FuncContext {
	return &FuncContext{
		Name:          name,
		Params:        make(map[string]bool),
		SharedVars:    make(map[string]bool),
		labelCounters: make(map[string]int),
	}
}

func (f *FuncContext) IsParam(name string) bool { return f.Params[baseName(name)] }
func (f *FuncContext) IsShared(name string) bool { return f.SharedVars[baseName(name)] }

func (f *FuncContext) AddParam(name string)  { f.Params[baseName(name)] = true }
func (f *FuncContext) AddShared(name string) { f.SharedVars[baseName(name)] = true }

// NewLabel returns a unique label for this function with the caller's
// prefix, e.g. NewLabel("for") -> "@for.0", "@for.1", ...
func (f *FuncContext) NewLabel(prefix string) string {
	n := f.labelCounters[prefix]
	f.labelCounters[prefix] = n + 1
	return "@" + prefix + "." + strconv.Itoa(n)
}

// ArrayDescriptorName maps a source array name to its descriptor pointer
// slot's mangled name.
func ArrayDescriptorName(arrayName string, isGlobal bool) string {
	return Mangle(arrayName, isGlobal) + ".desc"
}
