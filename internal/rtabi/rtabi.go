// Package rtabi is the Runtime Library Façade: the signature table of the
// externally-visible runtime calls of spec.md §6, plus typed wrappers for a
// handful of them. The roughly 60 entries are data, not code — Load parses
// them from an embedded YAML document into a string-keyed registry each
// time it is called, per the "dynamic dispatch via string-keyed
// registries" design note in spec.md §9.
package rtabi

import (
	_ "embed"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fasterbasic/qbemit/internal/ilbuilder"
)

//go:embed runtime_abi.yaml
var abiYAML []byte

// Signature is one runtime function's positional QBE-convention type
// signature.
type Signature struct {
	Params []string `yaml:"params"`
	Ret    string   `yaml:"ret"`
}

// Table is the loaded runtime ABI registry.
type Table struct {
	sigs map[string]Signature
}

// Load parses the embedded ABI document. It is the one place in this
// module outside the CLI that can genuinely fail — a malformed embedded
// document is a build-time bug, wrapped with github.com/pkg/errors so a
// caller gets a stack-annotated error instead of a bare yaml error.
func Load() (*Table, error) {
	var raw map[string]Signature
	if err := yaml.Unmarshal(abiYAML, &raw); err != nil {
		return nil, errors.Wrap(err, "rtabi: parsing embedded runtime_abi.yaml")
	}
	return &Table{sigs: raw}, nil
}

// MustLoad panics on a malformed embedded document, for callers that have
// no useful recovery path; emitter.New calls Load instead (the document is
// compiled into the binary, so a failure here can only be a packaging bug).
func MustLoad() *Table {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns a function's signature, or false if it is not part of the
// ABI table.
func (t *Table) Lookup(name string) (Signature, bool) {
	sig, ok := t.sigs[name]
	return sig, ok
}

// Façade wraps a Table and an ilbuilder.Builder to give every runtime call
// a typed Go method. Only a handful of calls are exposed as named methods;
// the emitter writes most other runtime calls straight through the
// builder, and Call is the generic path that validates the name and arity
// against the loaded signature.
type Façade struct {
	table   *Table
	builder *ilbuilder.Builder
}

func NewFaçade(table *Table, b *ilbuilder.Builder) *Façade {
	return &Façade{table: table, builder: b}
}

// Call marshals args against the registered signature and emits a direct
// call. dest is "" for void calls. An unknown function name or arity
// mismatch is an internal-bug condition the caller (the emitter) turns
// into an `ERROR:` IL comment rather than panicking — this method itself
// just reports it via the returned bool.
func (f *Façade) Call(dest, name string, args []ilbuilder.Arg) bool {
	sig, ok := f.table.Lookup(name)
	if !ok {
		return false
	}
	if len(args) != len(sig.Params) {
		return false
	}
	if sig.Ret == "" {
		f.builder.EmitCall("", "", name, args)
		return true
	}
	f.builder.EmitCall(dest, sig.Ret, name, args)
	return true
}

// PrintInt emits basic_print_int(v).
func (f *Façade) PrintInt(v string) {
	f.builder.EmitCall("", "", "basic_print_int", []ilbuilder.Arg{{Type: "w", Value: v}})
}

// PrintFloat emits basic_print_float(v).
func (f *Façade) PrintFloat(v string) {
	f.builder.EmitCall("", "", "basic_print_float", []ilbuilder.Arg{{Type: "s", Value: v}})
}

// PrintDouble emits basic_print_double(v).
func (f *Façade) PrintDouble(v string) {
	f.builder.EmitCall("", "", "basic_print_double", []ilbuilder.Arg{{Type: "d", Value: v}})
}

// PrintStringDesc emits basic_print_string_desc(v).
func (f *Façade) PrintStringDesc(v string) {
	f.builder.EmitCall("", "", "basic_print_string_desc", []ilbuilder.Arg{{Type: "l", Value: v}})
}

func (f *Façade) PrintNewline() {
	f.builder.EmitCall("", "", "basic_print_newline", nil)
}

func (f *Façade) PrintTab() {
	f.builder.EmitCall("", "", "basic_print_tab", nil)
}

// StringNewUTF8 wraps a C string pointer as a retained descriptor.
func (f *Façade) StringNewUTF8(dest *ilbuilder.Builder, cstr string) string {
	t := dest.NewTemp()
	dest.EmitCall(t, "l", "string_new_utf8", []ilbuilder.Arg{{Type: "l", Value: cstr}})
	return t
}

// StringRetain emits string_retain(v) and returns the (same) retained
// pointer in a fresh temp, per the retain/store/release self-assignment
// discipline of spec.md §5.
func (f *Façade) StringRetain(b *ilbuilder.Builder, v string) string {
	t := b.NewTemp()
	b.EmitCall(t, "l", "string_retain", []ilbuilder.Arg{{Type: "l", Value: v}})
	return t
}

// StringRelease emits string_release(v).
func (f *Façade) StringRelease(b *ilbuilder.Builder, v string) {
	b.EmitCall("", "", "string_release", []ilbuilder.Arg{{Type: "l", Value: v}})
}

// ClassObjectNew emits class_object_new(size, vtable, classId).
func (f *Façade) ClassObjectNew(b *ilbuilder.Builder, size int, vtableSym string, classId int) string {
	t := b.NewTemp()
	b.EmitCall(t, "l", "class_object_new", []ilbuilder.Arg{
		{Type: "l", Value: fmt.Sprintf("%d", size)},
		{Type: "l", Value: vtableSym},
		{Type: "w", Value: fmt.Sprintf("%d", classId)},
	})
	return t
}
