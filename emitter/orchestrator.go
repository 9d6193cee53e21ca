package emitter

import (
	"fmt"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/cfgir"
	"github.com/fasterbasic/qbemit/internal/mangle"
	"github.com/fasterbasic/qbemit/internal/qtype"
	"github.com/fasterbasic/qbemit/sema"
)

// Program is everything the orchestrator needs to emit a whole compilation
// unit: the program's top-level CFG, every FUNCTION/SUB's CFG, every
// class's methods, and the packed DATA section (spec.md §4.10).
type Program struct {
	TopLevel   *cfgir.Graph
	Functions  []FunctionUnit
	Classes    []ClassUnit
	DataValues []DataValue
	GosubStackDepth int
}

// FunctionUnit pairs a semantic Function with the CFG that drives its body.
type FunctionUnit struct {
	Fn    *sema.Function
	Graph *cfgir.Graph
}

// MethodUnit pairs a class method with its self-contained method-mode body
// (spec.md §4.7 "Method mode" — methods never carry an external CFG).
type MethodUnit struct {
	Method *sema.Method
	Body   *ast.Block
}

// ClassUnit bundles a class's constructor, destructor and ordinary methods.
type ClassUnit struct {
	Class       *sema.Class
	Constructor *MethodUnit
	Destructor  *MethodUnit
	Methods     []MethodUnit
}

// DataValue is one packed entry of the program's DATA section.
type DataValue struct {
	Type  *sema.Type
	Text  string // formatted literal text, e.g. "42" or "d_3.5"
	Bytes string // string literal content, only meaningful when Type.IsString()
}

// EmitProgram is the Top-level Orchestrator of spec.md §4.10: it walks
// global declarations implied by the symbol table, emits the GOSUB stack
// globals, the packed DATA section and its bookkeeping globals, then every
// function, every class's vtable and methods, and finally main. String
// literals enter the string pool when emission first reaches them; there
// is no separate pass that preloads the pool before emission.
func (e *Emitter) EmitProgram(p *Program) {
	e.emitGlobalSlots()
	e.emitGosubGlobals(p.GosubStackDepth)
	e.emitDataSection(p.DataValues)

	for _, fu := range p.Functions {
		e.emitFunctionUnit(fu)
	}
	for _, cu := range p.Classes {
		e.emitClassUnit(cu)
	}
	e.emitMain(p.TopLevel)
}

// emitGlobalSlots declares one global storage line per non-local variable
// in the symbol table (spec.md §4.10 step 2). Arrays additionally get a
// descriptor-pointer slot.
func (e *Emitter) emitGlobalSlots() {
	for name, v := range e.table.Variables {
		if v.Scope != sema.ScopeGlobal && v.Scope != sema.ScopeShared {
			continue
		}
		addr := mangle.Mangle(name, true)
		size := e.qt.TypeSize(v.Type)
		e.b.EmitGlobalLine(fmt.Sprintf("export data %s = align %d { z %d }", addr, align(size), size))
	}
	for name, a := range e.table.Arrays {
		if !a.IsGlobal {
			continue
		}
		descAddr := mangle.ArrayDescriptorName(name, true)
		e.b.EmitGlobalLine(fmt.Sprintf("export data %s = align 8 { l 0 }", descAddr))
	}
}

func align(size int) int {
	switch {
	case size >= 8:
		return 8
	case size >= 4:
		return 4
	case size >= 2:
		return 2
	default:
		return 1
	}
}

// emitGosubGlobals declares the GOSUB return-address stack and its stack
// pointer (spec.md §4.10 step 4, supplemented feature).
func (e *Emitter) emitGosubGlobals(depth int) {
	if depth <= 0 {
		depth = 64
	}
	e.b.EmitGlobalLine(fmt.Sprintf("data %s = align 8 { z %d }", e.gosubStackGlobal, depth*8))
	e.b.EmitGlobalLine(fmt.Sprintf("data %s = align 4 { w 0 }", e.gosubIndexGlobal))
}

// emitDataSection packs every READ-able literal into one contiguous blob
// addressed by e.dataPointerGlobal, restored to its start by `RESTORE`
// (spec.md §4.10 step 4). A string cell holds the literal's text pointer;
// emitRead wraps it with string_new_utf8 on every READ.
func (e *Emitter) emitDataSection(values []DataValue) {
	e.b.EmitGlobalLine(fmt.Sprintf("data $__data_start = align 8 { %s }", formatDataValues(e.qt, values)))
	e.b.EmitGlobalLine(fmt.Sprintf("data %s = align 8 { l $__data_start }", e.dataPointerGlobal))
	e.b.EmitGlobalLine(fmt.Sprintf("export data %s = align 8 { l $__data_start + %d }", e.dataEndConst, dataSectionSize(e.qt, values)))
}

// formatDataValues packs every READ-able literal into an 8-byte-per-element
// cell, regardless of its declared width (spec.md §3, §4.6 "packed
// 8-byte-per-element global array"): strings and integers sit in an `l`
// cell, single- and double-precision floats both widen into a `d` cell so
// emitRead's `cast` back to bits is always a same-width reinterpretation.
func formatDataValues(qt interface{ TypeSize(*sema.Type) int }, values []DataValue) string {
	if len(values) == 0 {
		return "l 0"
	}
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		switch {
		case v.Type.IsString():
			out += "l " + v.Text
		case v.Type.Prim == sema.PrimSingle || v.Type.Prim == sema.PrimDouble:
			out += "d " + v.Text
		default:
			out += "l " + v.Text
		}
	}
	return out
}

// dataSectionSize returns the DATA section's total byte length — always a
// multiple of 8, one cell per value (spec.md §3 "packed 8-byte-per-element").
func dataSectionSize(qt interface{ TypeSize(*sema.Type) int }, values []DataValue) int {
	return len(values) * 8
}

// emitFunctionUnit emits one FUNCTION/SUB's header, entry-block
// pre-allocation and CFG-driven body (spec.md §4.10 step 5).
func (e *Emitter) emitFunctionUnit(fu FunctionUnit) {
	e.ResetFunction(fu.Fn.Name, false, -1, fu.Fn.ReturnType)
	for _, p := range fu.Fn.Params {
		e.fn.AddParam(p.Name)
	}
	e.b.EmitFunctionHeader(functionHeaderLine(e, fu.Fn))
	e.b.EmitLabelDef("@start")
	if fu.Fn.ReturnType != nil {
		slot := qtype.ReturnVariableName(fu.Fn.Name, fu.Fn.ReturnType)
		e.b.EmitAlloc(slot, 8, int64(e.qt.TypeSize(fu.Fn.ReturnType)))
	}
	e.forceScratchBuffers()
	e.preallocateLocals(fu.Graph)
	e.EmitCFG(fu.Graph)
	e.b.EmitRaw("}")
}

func functionHeaderLine(e *Emitter, fn *sema.Function) string {
	params := ""
	for i, p := range fn.Params {
		if i > 0 {
			params += ", "
		}
		params += string(e.qt.QBEType(p.Type)) + " " + mangle.Mangle(p.Name, false)
	}
	ret := ""
	if fn.ReturnType != nil {
		ret = string(e.qt.QBEType(fn.ReturnType)) + " "
	}
	return fmt.Sprintf("export function %s$%s(%s) {", ret, fn.Name, params)
}

// preallocateLocals walks every block's statements for DIM/LOCAL
// declarations and alloc()s them up front, before CFG emission begins, so
// every alloc instruction physically lands in the function's entry block
// regardless of which later block its DIM/LOCAL statement is scheduled in
// (spec.md §4.1 "entry-block-only" contract, §9 design note on hoisting).
func (e *Emitter) preallocateLocals(g *cfgir.Graph) {
	for _, blk := range g.Blocks {
		for _, s := range blk.Stmts {
			e.preallocateStmt(s)
		}
	}
}

func (e *Emitter) preallocateStmt(s ast.Node) {
	switch n := s.(type) {
	case *ast.Local:
		if _, already := e.localAddr[n.Name]; !already {
			e.allocLocal(n.Name, n.Type)
		}
	case *ast.Dim:
		if n.DimKind == ast.DimMethodLocal {
			if _, already := e.localAddr[n.Name]; !already {
				e.allocLocal(n.Name, n.Type)
			}
		}
	}
}

// emitClassUnit emits a class's vtable data and every method body
// (spec.md §4.10 step 6). The vtable layout mirrors emitVirtualCall's own
// slot arithmetic: a 32-byte header (external ABI, layout otherwise
// unspecified) followed by 8 bytes per virtual method slot.
func (e *Emitter) emitClassUnit(cu ClassUnit) {
	e.emitVtable(cu.Class)
	if cu.Constructor != nil {
		e.emitMethodUnit(cu.Class, *cu.Constructor, cu.Class.ConstructorSym)
	}
	if cu.Destructor != nil {
		e.emitMethodUnit(cu.Class, *cu.Destructor, cu.Class.DestructorSym)
	}
	for _, m := range cu.Methods {
		e.emitMethodUnit(cu.Class, m, m.Method.MangledSym)
	}
}

func (e *Emitter) emitVtable(c *sema.Class) string {
	entries := make([]string, 0, len(c.Methods)+2)
	entries = append(entries, fmt.Sprintf("w %d", c.ClassId), "z 28")
	for _, m := range c.Methods {
		entries = append(entries, "l $"+m.MangledSym)
	}
	line := "data $" + c.VtableSymbol + " = align 8 { "
	for i, ent := range entries {
		if i > 0 {
			line += ", "
		}
		line += ent
	}
	line += " }"
	e.b.EmitGlobalLine(line)
	return c.VtableSymbol
}

func (e *Emitter) emitMethodUnit(c *sema.Class, m MethodUnit, sym string) {
	e.ResetFunction(sym, true, c.ClassId, m.Method.ReturnType)
	e.fn.AddParam("me")
	for _, p := range paramsFromTypes(m.Method.ParamTypes) {
		e.fn.AddParam(p)
	}
	params := "l %me"
	for i, pt := range m.Method.ParamTypes {
		params += fmt.Sprintf(", %s %%p%d", e.qt.QBEType(pt), i)
	}
	ret := ""
	if m.Method.ReturnType != nil {
		ret = string(e.qt.QBEType(m.Method.ReturnType)) + " "
	}
	e.b.EmitFunctionHeader(fmt.Sprintf("export function %s$%s(%s) {", ret, sym, params))
	e.b.EmitLabelDef("@start")
	e.forceScratchBuffers()
	e.preallocateBlockLocals(m.Body)
	e.EmitBlock(m.Body)
	if m.Method.ReturnType == nil {
		e.b.EmitReturn("")
	}
	e.b.EmitRaw("}")
}

func paramsFromTypes(types []*sema.Type) []string {
	names := make([]string, len(types))
	for i := range types {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}

func (e *Emitter) preallocateBlockLocals(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		e.preallocateStmt(s)
		switch n := s.(type) {
		case *ast.If:
			e.preallocateBlockLocals(n.Then)
			e.preallocateBlockLocals(n.Else)
		case *ast.For:
			e.preallocateBlockLocals(n.Body)
		case *ast.ForEach:
			e.preallocateBlockLocals(n.Body)
		case *ast.While:
			e.preallocateBlockLocals(n.Body)
		case *ast.Do:
			e.preallocateBlockLocals(n.Body)
		}
	}
}

// emitMain wraps the top-level CFG in `main`, bracketed by SAMM's process
// lifetime calls when enabled (spec.md §4.10 step 7, §6).
func (e *Emitter) emitMain(g *cfgir.Graph) {
	e.ResetFunction("main", false, -1, nil)
	e.b.EmitFunctionHeader("export function w $main() {")
	e.b.EmitLabelDef("@start")
	e.forceScratchBuffers()
	e.preallocateLocals(g)
	if e.cfg.SAMM {
		e.b.EmitCall("", "", "samm_enter_scope", nil)
	}
	e.EmitCFG(g)
	if e.cfg.SAMM {
		e.b.EmitCall("", "", "samm_shutdown", nil)
	}
	e.b.EmitRaw("}")
}
