package emitter

import (
	"strconv"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/ilbuilder"
	"github.com/fasterbasic/qbemit/internal/mangle"
	"github.com/fasterbasic/qbemit/internal/qtype"
	"github.com/fasterbasic/qbemit/sema"
)

// arrangementCode renders the 2-bit lane-geometry tag used by neon<op>
// (spec.md §4.8, §3, §4.10): `{0=.4s int, 1=.2d int, 2=.4s float, 3=.2d
// float}`, emitted as the literal digit, never as a dotted suffix.
func arrangementCode(a qtype.Arrangement) string {
	return strconv.Itoa(int(a))
}

// emitNeonUDTCopy bulk-copies a full-Q (16-byte) UDT with one vector load
// and one vector store, bypassing the field-by-field scalar path entirely
// (spec.md §4.8 "bulk UDT copy": `neonldr src; neonstr dst`). Callers must
// already have verified the UDT is string-free — a NEON register has no
// notion of a reference count.
func (e *Emitter) emitNeonUDTCopy(destAddr, srcAddr string, info qtype.SimdInfo) {
	e.b.EmitRaw("neonldr " + srcAddr)
	e.b.EmitRaw("neonstr " + destAddr)
}

// emitNeonUDTArith applies one of add/sub/mul/div across every lane of two
// full-Q UDTs, producing a third (spec.md §4.8 "whole-UDT arithmetic"):
// `neonldr A; neonldr2 B; neon<op> arrangement_code; neonstr C`. These are
// pseudo-opcodes over an implicit NEON register pair, not SSA-dest-assigned
// values — each takes either an address or the 2-bit arrangement tag.
func (e *Emitter) emitNeonUDTArith(destAddr, lhsAddr, rhsAddr string, info qtype.SimdInfo, op string) {
	e.b.EmitRaw("neonldr " + lhsAddr)
	e.b.EmitRaw("neonldr2 " + rhsAddr)
	e.b.EmitRaw("neon" + op + " " + arrangementCode(info.Arrangement))
	e.b.EmitRaw("neonstr " + destAddr)
}

// neonUDTArithEligible reports whether a UDT binary expression (UDT + UDT,
// etc.) can be lowered through the NEON path: both operands full-Q, uniform
// primitive fields, and the NeonArith kill-switch enabled.
func (e *Emitter) neonUDTArithEligible(t *sema.Type) (qtype.SimdInfo, bool) {
	if !e.cfg.NeonArith || t == nil || !t.IsUDT() {
		return qtype.SimdInfo{}, false
	}
	u := e.table.UDT(t.UDTId)
	if e.qt.HasStringFields(u) {
		return qtype.SimdInfo{}, false
	}
	info := e.qt.SimdInfoFor(u)
	return info, info.Valid && info.FullQ
}

// VectorizedLoopPlan describes a FOR loop the SIMD Vectoriser has decided
// to rewrite: a simple induction variable walking up to three distinct
// arrays of full-Q UDT elements, with a body that is a single whole-element
// arithmetic statement `C(i) = A(i) OP B(i)` (spec.md §4.8 "vectorised-loop
// pattern matching"). DestName may coincide with LeftName or RightName for
// the in-place `A(i) = A(i) OP B(i)` shape.
type VectorizedLoopPlan struct {
	DestName  string
	LeftName  string
	RightName string
	ElemType  *sema.Type
	Info      qtype.SimdInfo
	Op        string
}

// TryVectorizeLoop inspects a method-mode FOR loop and returns a plan when
// its body is exactly `C(i) = A(i) OP B(i)` over a full-Q element type,
// otherwise ok is false and the ordinary scalar loop emission proceeds
// unchanged. This is a narrow, syntactic pattern match — spec.md explicitly
// scopes general auto-vectorisation out.
func (e *Emitter) TryVectorizeLoop(n *ast.For) (VectorizedLoopPlan, bool) {
	if !e.cfg.NeonLoop || n.Body == nil || len(n.Body.Stmts) != 1 {
		return VectorizedLoopPlan{}, false
	}
	if n.Step != nil {
		if lit, ok := n.Step.(*ast.NumberLit); !ok || !lit.IsInt || lit.IntVal != 1 {
			return VectorizedLoopPlan{}, false
		}
	}
	let, ok := n.Body.Stmts[0].(*ast.Let)
	if !ok || let.Target.Kind != ast.LValueArrayElemUDT {
		return VectorizedLoopPlan{}, false
	}
	bin, ok := let.Value.(*ast.Binary)
	if !ok {
		return VectorizedLoopPlan{}, false
	}
	lhs, ok := bin.Left.(*ast.ArrayAccess)
	if !ok {
		return VectorizedLoopPlan{}, false
	}
	rhs, ok := bin.Right.(*ast.ArrayAccess)
	if !ok {
		return VectorizedLoopPlan{}, false
	}
	for _, idx := range [][]ast.Node{let.Target.Indices, lhs.Indices, rhs.Indices} {
		if len(idx) != 1 {
			return VectorizedLoopPlan{}, false
		}
		if v, ok := idx[0].(*ast.Variable); !ok || v.Name != n.VarName {
			return VectorizedLoopPlan{}, false
		}
	}
	info, eligible := e.neonUDTArithEligible(let.Target.Type)
	if !eligible {
		return VectorizedLoopPlan{}, false
	}
	op := ""
	switch bin.Op {
	case ast.OpAdd:
		op = "add"
	case ast.OpSub:
		op = "sub"
	case ast.OpMul:
		op = "mul"
	case ast.OpDiv:
		op = "div"
	default:
		return VectorizedLoopPlan{}, false
	}
	return VectorizedLoopPlan{
		DestName:  let.Target.ArrayName,
		LeftName:  lhs.ArrayName,
		RightName: rhs.ArrayName,
		ElemType:  let.Target.Type,
		Info:      info,
		Op:        op,
	}, true
}

// distinctArrayNames dedupes up to three array names while preserving
// first-seen order, since a bounds check and a data pointer are only ever
// needed once per physical array even when it fills more than one role
// (spec.md §4.8 "one `array_check_range` call per distinct array").
func distinctArrayNames(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		seen := false
		for _, o := range out {
			if o == n {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, n)
		}
	}
	return out
}

// EmitVectorizedLoop emits the rewritten loop body: one `array_check_range`
// over `[start,end]` per distinct array, each array's base data pointer via
// `array_get_data_ptr`, and a byte-offset cursor that walks all three arrays
// in lockstep, advancing by the element size per iteration (spec.md §4.8
// "bounds checks", "byte-offset cursor").
func (e *Emitter) EmitVectorizedLoop(n *ast.For, plan VectorizedLoopPlan) {
	elemSize := e.qt.TypeSize(plan.ElemType)

	start := e.emitCoerced(n.Start, intType)
	limit := e.emitCoerced(n.Limit, intType)

	names := distinctArrayNames(plan.DestName, plan.LeftName, plan.RightName)
	bases := make(map[string]string, len(names))
	for _, name := range names {
		desc := e.arrayDescriptorTemp(name)
		e.b.EmitCall("", "", "array_check_range", []ilbuilder.Arg{
			{Type: "l", Value: desc}, {Type: "w", Value: "0"}, {Type: "w", Value: start}, {Type: "w", Value: limit},
		})
		base := e.b.NewTemp()
		e.b.EmitCall(base, "l", "array_get_data_ptr", []ilbuilder.Arg{{Type: "l", Value: desc}})
		bases[name] = base
	}

	startL := e.b.NewTemp()
	e.b.EmitConvert(startL, "l", "extsw", start)
	limitL := e.b.NewTemp()
	e.b.EmitConvert(limitL, "l", "extsw", limit)

	startByteOff := e.b.NewTemp()
	e.b.EmitBinary(startByteOff, "l", "mul", startL, strconv.Itoa(elemSize))
	count := e.b.NewTemp()
	e.b.EmitBinary(count, "l", "sub", limitL, startL)
	countPlus1 := e.b.NewTemp()
	e.b.EmitBinary(countPlus1, "l", "add", count, "1")
	totalBytes := e.b.NewTemp()
	e.b.EmitBinary(totalBytes, "l", "mul", countPlus1, strconv.Itoa(elemSize))
	endByteOff := e.b.NewTemp()
	e.b.EmitBinary(endByteOff, "l", "add", startByteOff, totalBytes)

	cursorAddr := e.b.NewTemp()
	e.b.EmitAlloc(cursorAddr, 8, 8)
	e.b.EmitStore("storel", startByteOff, cursorAddr)

	condLabel := e.fn.NewLabel("vec.cond")
	bodyLabel := e.fn.NewLabel("vec.body")
	doneLabel := e.fn.NewLabel("vec.done")

	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(condLabel)
	cur := e.b.NewTemp()
	e.b.EmitLoad(cur, "l", "loadl", cursorAddr)
	cmp := e.b.NewTemp()
	e.b.EmitCompare(cmp, "slt", "l", cur, endByteOff)
	e.b.EmitBranch(cmp, bodyLabel, doneLabel)

	e.b.EmitLabelDef(bodyLabel)
	destAddr := e.b.NewTemp()
	e.b.EmitBinary(destAddr, "l", "add", bases[plan.DestName], cur)
	leftAddr := e.b.NewTemp()
	e.b.EmitBinary(leftAddr, "l", "add", bases[plan.LeftName], cur)
	rightAddr := e.b.NewTemp()
	e.b.EmitBinary(rightAddr, "l", "add", bases[plan.RightName], cur)
	e.emitNeonUDTArith(destAddr, leftAddr, rightAddr, plan.Info, plan.Op)

	next := e.b.NewTemp()
	e.b.EmitBinary(next, "l", "add", cur, strconv.Itoa(elemSize))
	e.b.EmitStore("storel", next, cursorAddr)
	e.b.EmitJump(condLabel)

	e.b.EmitLabelDef(doneLabel)

	varAddr := e.variableAddress(n.VarName, n.VarType)
	endVal := e.b.NewTemp()
	e.b.EmitBinary(endVal, "w", "add", limit, "1")
	e.b.EmitStore(storeOpFor(n.VarType), endVal, varAddr)
}

func (e *Emitter) arrayDescriptorTemp(name string) string {
	descAddr := mangle.ArrayDescriptorName(name, e.isGlobalArray(name))
	t := e.b.NewTemp()
	e.b.EmitLoad(t, "l", "loadl", descAddr)
	return t
}
