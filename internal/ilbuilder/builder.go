// Package ilbuilder is the lowest layer of the emitter: textual emission of
// QBE-style SSA IL plus the handful of NEON pseudo-opcodes the SIMD
// Vectoriser needs (spec.md §4.1). It knows nothing about BASIC semantics —
// it only knows how to format instructions and keep temp/label/string-pool
// bookkeeping correct.
package ilbuilder

import (
	"fmt"
	"strings"
)

// Arg is one `type value` pair of a call's argument list.
type Arg struct {
	Type  string
	Value string
}

// Builder accumulates IL text for one compilation unit. Per spec.md §5 the
// temp and label counters are per-function and reset at each function
// boundary via ResetFunction; the string pool is append-only for the whole
// program.
type Builder struct {
	tempCounter  int
	labelCounter int

	stringPool  map[string]string
	stringOrder []string

	funcBody strings.Builder
	dataSec  strings.Builder
	header   strings.Builder
}

func New() *Builder {
	return &Builder{stringPool: make(map[string]string)}
}

// ResetFunction zeroes the temp/label counters. Contract: NewTemp never
// collides within a function, so this must be called once per function
// before any emission for that function begins.
func (b *Builder) ResetFunction() {
	b.tempCounter = 0
	b.labelCounter = 0
}

// NewTemp allocates a fresh SSA temporary name, unique within the current
// function.
func (b *Builder) NewTemp() string {
	name := fmt.Sprintf("%%t%d", b.tempCounter)
	b.tempCounter++
	return name
}

// NewLabelID allocates a fresh numeric label id, unique within the current
// function.
func (b *Builder) NewLabelID() int {
	id := b.labelCounter
	b.labelCounter++
	return id
}

// RegisterString pools a string constant by content and returns its data
// label. Equal content always returns the same label (spec.md §4.1, §8
// "String pool" round-trip property).
func (b *Builder) RegisterString(s string) string {
	if label, ok := b.stringPool[s]; ok {
		return label
	}
	label := fmt.Sprintf("$str%d", len(b.stringOrder))
	b.stringPool[s] = label
	b.stringOrder = append(b.stringOrder, s)
	return label
}

// --- Function body emission ---

func (b *Builder) Comment(text string) {
	fmt.Fprintf(&b.funcBody, "    # %s\n", text)
}

// EmitRaw appends a pre-formatted line, used for NEON pseudo-ops and other
// instructions outside the normal grammar (spec.md §4.1 "raw emission").
func (b *Builder) EmitRaw(line string) {
	fmt.Fprintf(&b.funcBody, "    %s\n", line)
}

// EmitBinary formats `dest =type op a, b`.
func (b *Builder) EmitBinary(dest, typ, op, a, bArg string) {
	fmt.Fprintf(&b.funcBody, "    %s =%s %s %s, %s\n", dest, typ, op, a, bArg)
}

// EmitCompare formats a comparison; the result is always `w` per spec.md
// §4.5.
func (b *Builder) EmitCompare(dest, op, operandType, a, bArg string) {
	fmt.Fprintf(&b.funcBody, "    %s =w c%s%s %s, %s\n", dest, op, operandType, a, bArg)
}

// EmitConvert formats a typed conversion op, e.g. `dest =d swtof a`.
func (b *Builder) EmitConvert(dest, destType, op, src string) {
	fmt.Fprintf(&b.funcBody, "    %s =%s %s %s\n", dest, destType, op, src)
}

// EmitCopy formats an unconditional SSA copy, used to unify IIF branches.
func (b *Builder) EmitCopy(dest, typ, src string) {
	fmt.Fprintf(&b.funcBody, "    %s =%s copy %s\n", dest, typ, src)
}

// EmitLoad formats a typed load, e.g. `dest =w loadsw addr`.
func (b *Builder) EmitLoad(dest, destType, loadOp, addr string) {
	fmt.Fprintf(&b.funcBody, "    %s =%s %s %s\n", dest, destType, loadOp, addr)
}

// EmitStore formats `type<suffix> value, addr`, e.g. `storew %t3, %t1`.
func (b *Builder) EmitStore(storeOp, value, addr string) {
	fmt.Fprintf(&b.funcBody, "    %s %s, %s\n", storeOp, value, addr)
}

// EmitAlloc formats an entry-block stack allocation. Contract: callers
// must only invoke this while emitting the function's entry block.
func (b *Builder) EmitAlloc(dest string, align int, size int64) {
	fmt.Fprintf(&b.funcBody, "    %s =l alloc%d %d\n", dest, align, size)
}

// EmitCall formats a direct call with an optional typed destination.
func (b *Builder) EmitCall(dest, retType, funcName string, args []Arg) {
	argText := formatArgs(args)
	if dest == "" {
		fmt.Fprintf(&b.funcBody, "    call $%s(%s)\n", funcName, argText)
		return
	}
	fmt.Fprintf(&b.funcBody, "    %s =%s call $%s(%s)\n", dest, retType, funcName, argText)
}

// EmitIndirectCall formats a call through a computed function pointer, used
// for virtual dispatch and plugin calls.
func (b *Builder) EmitIndirectCall(dest, retType, fnPtr string, args []Arg) {
	argText := formatArgs(args)
	if dest == "" {
		fmt.Fprintf(&b.funcBody, "    call %s(%s)\n", fnPtr, argText)
		return
	}
	fmt.Fprintf(&b.funcBody, "    %s =%s call %s(%s)\n", dest, retType, fnPtr, argText)
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%s %s", a.Type, a.Value)
	}
	return strings.Join(parts, ", ")
}

func (b *Builder) EmitJump(label string) {
	fmt.Fprintf(&b.funcBody, "    jmp %s\n", label)
}

// EmitBranch formats a two-way conditional jump.
func (b *Builder) EmitBranch(cond, trueLabel, falseLabel string) {
	fmt.Fprintf(&b.funcBody, "    jnz %s, %s, %s\n", cond, trueLabel, falseLabel)
}

func (b *Builder) EmitLabelDef(label string) {
	fmt.Fprintf(&b.funcBody, "%s\n", label)
}

func (b *Builder) EmitReturn(value string) {
	if value == "" {
		fmt.Fprint(&b.funcBody, "    ret\n")
		return
	}
	fmt.Fprintf(&b.funcBody, "    ret %s\n", value)
}

func (b *Builder) EmitHalt() {
	fmt.Fprint(&b.funcBody, "    hlt\n")
}

// --- Section accumulation ---

// EmitFunctionHeader appends a function signature line directly into the
// body accumulator; the orchestrator is responsible for ordering this
// before the entry block.
func (b *Builder) EmitFunctionHeader(line string) {
	fmt.Fprintf(&b.funcBody, "%s\n", line)
}

func (b *Builder) EmitGlobalLine(line string) {
	fmt.Fprintf(&b.header, "%s\n", line)
}

// FlushDataSection renders the accumulated string pool as a `data` section,
// one entry per pooled string, in registration order (stable, per spec.md
// §5 "String-pool registration is stable").
func (b *Builder) FlushDataSection() {
	for i, s := range b.stringOrder {
		label := fmt.Sprintf("$str%d", i)
		fmt.Fprintf(&b.dataSec, "data %s = { b %s, b 0 }\n", label, quoteBytes(s))
	}
}

func quoteBytes(s string) string {
	parts := make([]string, 0, len(s))
	for _, c := range []byte(s) {
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", b ")
}

// DataLine appends a raw pre-formatted line to the data section. The
// orchestrator writes its global slots and the packed DATA section through
// EmitGlobalLine instead.
func (b *Builder) DataLine(line string) {
	fmt.Fprintf(&b.dataSec, "%s\n", line)
}

// String renders the full program: header/globals, data section, then
// function bodies, matching spec.md §4.10's emission order.
func (b *Builder) String() string {
	var out strings.Builder
	out.WriteString(b.header.String())
	out.WriteString(b.dataSec.String())
	out.WriteString(b.funcBody.String())
	return out.String()
}
