package emitter

import (
	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/ilbuilder"
	"github.com/fasterbasic/qbemit/internal/mangle"
	"github.com/fasterbasic/qbemit/sema"
)

// blockAllocates reports whether any statement in body could allocate SAMM
// scope entries. It judges by statement shape alone: any DIM, PRINT or CALL
// statement, a LET into a STRING target, and a LET or LOCAL whose value is
// a NEW, method call, function call or plugin call all count, as does any
// such statement nested in an IF, FOR, FOR EACH, WHILE or DO body. It is a
// conservative over-approximation: the SAMM scope is wrapped whenever this
// returns true, even if the allocating path is never taken at runtime
// (spec.md §4.7 "SAMM-gated loop wrapping").
func blockAllocates(b *ast.Block) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case *ast.Dim:
			return true
		case *ast.Local:
			if exprAllocates(n.Initializer) {
				return true
			}
		case *ast.Let:
			if exprAllocates(n.Value) || (n.Target.Type != nil && n.Target.Type.IsString()) {
				return true
			}
		case *ast.Print:
			return true
		case *ast.CallStmt:
			return true
		case *ast.If:
			if blockAllocates(n.Then) || blockAllocates(n.Else) {
				return true
			}
		case *ast.For:
			if blockAllocates(n.Body) {
				return true
			}
		case *ast.ForEach:
			if blockAllocates(n.Body) {
				return true
			}
		case *ast.While:
			if blockAllocates(n.Body) {
				return true
			}
		case *ast.Do:
			if blockAllocates(n.Body) {
				return true
			}
		}
	}
	return false
}

func exprAllocates(n ast.Node) bool {
	switch n.(type) {
	case *ast.NewExpr, *ast.MethodCall, *ast.Call, *ast.PluginCall:
		return true
	}
	return false
}

// withSammScope wraps body's emission with samm_enter_scope/samm_exit_scope
// when both the config kill-switch and blockAllocates agree it is needed
// (spec.md §4.7, §6).
func (e *Emitter) withSammScope(body *ast.Block, emit func()) {
	wrap := e.cfg.SAMM && blockAllocates(body)
	if wrap {
		e.b.EmitCall("", "", "samm_enter_scope", nil)
	}
	emit()
	if wrap {
		e.b.EmitCall("", "", "samm_exit_scope", nil)
	}
}

// --- Method-mode IF ---

func (e *Emitter) emitMethodIf(n *ast.If) {
	cond := e.emitBoolCond(n.Cond)
	thenLabel := e.fn.NewLabel("if.then")
	elseLabel := e.fn.NewLabel("if.else")
	joinLabel := e.fn.NewLabel("if.join")

	e.b.EmitBranch(cond, thenLabel, elseLabel)
	e.b.EmitLabelDef(thenLabel)
	e.EmitBlock(n.Then)
	e.b.EmitJump(joinLabel)
	e.b.EmitLabelDef(elseLabel)
	e.EmitBlock(n.Else)
	e.b.EmitJump(joinLabel)
	e.b.EmitLabelDef(joinLabel)
}

// emitBoolCond lowers a condition expression and narrows a floating result
// to a word for jnz, matching the Expression Emitter's IIF handling.
func (e *Emitter) emitBoolCond(cond ast.Node) string {
	val := e.EmitExpr(cond)
	t := e.exprType(cond)
	if t != nil && (t.Prim == sema.PrimSingle || t.Prim == sema.PrimDouble) {
		val = e.convert(val, t, intType)
	}
	return val
}

// --- Method-mode FOR ---

// emitMethodFor lowers FOR var = start TO limit [STEP step] ... NEXT as a
// self-contained three-block loop (init, condition, body+increment),
// matching the CFG mode's own FOR init/condition/increment hooks structurally
// but without any external CFG to drive it (spec.md §4.7).
func (e *Emitter) emitMethodFor(n *ast.For) {
	if plan, ok := e.TryVectorizeLoop(n); ok {
		e.EmitVectorizedLoop(n, plan)
		return
	}

	addr := e.variableAddress(n.VarName, n.VarType)
	start := e.emitCoerced(n.Start, n.VarType)
	e.b.EmitStore(storeOpFor(n.VarType), start, addr)

	condLabel := e.fn.NewLabel("for.cond")
	bodyLabel := e.fn.NewLabel("for.body")
	doneLabel := e.fn.NewLabel("for.done")

	storage := string(e.qt.QBEType(n.VarType))
	loadOp := loadOpFor(n.VarType)

	stepVal := "1"
	negativeStepKnown := false
	isNegativeStep := false
	if n.Step != nil {
		stepVal = e.emitCoerced(n.Step, n.VarType)
		if lit, ok := n.Step.(*ast.NumberLit); ok && lit.IsInt {
			negativeStepKnown = true
			isNegativeStep = lit.IntVal < 0
		}
	}
	limit := e.emitCoerced(n.Limit, n.VarType)

	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(condLabel)
	cur := e.b.NewTemp()
	e.b.EmitLoad(cur, storage, loadOp, addr)
	cmp := e.b.NewTemp()
	cmpOp := "sle"
	if negativeStepKnown && isNegativeStep {
		cmpOp = "sge"
	} else if !negativeStepKnown {
		// Unknown step sign: conservatively test both directions by
		// comparing against the step's own sign at runtime would need a
		// data-dependent branch; the common case (literal step) is exact,
		// so a non-literal step defaults to ascending semantics, matching
		// the documented default STEP of 1.
		cmpOp = "sle"
	}
	e.b.EmitCompare(cmp, cmpOp, storage, cur, limit)
	e.b.EmitBranch(cmp, bodyLabel, doneLabel)

	e.b.EmitLabelDef(bodyLabel)
	e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })
	cur2 := e.b.NewTemp()
	e.b.EmitLoad(cur2, storage, loadOp, addr)
	next := e.b.NewTemp()
	e.b.EmitBinary(next, storage, "add", cur2, stepVal)
	e.b.EmitStore(storeOpFor(n.VarType), next, addr)
	e.b.EmitJump(condLabel)

	e.b.EmitLabelDef(doneLabel)
}

// --- Method-mode WHILE / DO ---

func (e *Emitter) emitMethodWhile(n *ast.While) {
	condLabel := e.fn.NewLabel("while.cond")
	bodyLabel := e.fn.NewLabel("while.body")
	doneLabel := e.fn.NewLabel("while.done")

	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(condLabel)
	cond := e.emitBoolCond(n.Cond)
	e.b.EmitBranch(cond, bodyLabel, doneLabel)
	e.b.EmitLabelDef(bodyLabel)
	e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })
	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(doneLabel)
}

func (e *Emitter) emitMethodDo(n *ast.Do) {
	bodyLabel := e.fn.NewLabel("do.body")
	condLabel := e.fn.NewLabel("do.cond")
	doneLabel := e.fn.NewLabel("do.done")

	if n.Cond == nil {
		// Unconditional DO...LOOP: callers are expected to EXIT via an
		// enclosing statement not modelled here (spec.md non-goal: no
		// EXIT/BREAK support beyond the CFG's own edges).
		e.b.EmitLabelDef(bodyLabel)
		e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })
		e.b.EmitJump(bodyLabel)
		return
	}

	switch n.ConditionPos {
	case ast.DoPreCondition:
		e.b.EmitJump(condLabel)
		e.b.EmitLabelDef(condLabel)
		cond := e.emitBoolCond(n.Cond)
		e.b.EmitBranch(cond, bodyLabel, doneLabel)
		e.b.EmitLabelDef(bodyLabel)
		e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })
		e.b.EmitJump(condLabel)
		e.b.EmitLabelDef(doneLabel)
	case ast.DoPostCondition:
		e.b.EmitLabelDef(bodyLabel)
		e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })
		cond := e.emitBoolCond(n.Cond)
		e.b.EmitBranch(cond, bodyLabel, doneLabel)
		e.b.EmitLabelDef(doneLabel)
	}
}

// --- FOR EACH ---

// emitForEach dispatches between an array walk (index-driven, direct
// element addressing) and a hashmap walk (key-iterator driven, through the
// runtime's hashmap_keys/hashmap_lookup pair), per spec.md §4.7
// "FOR EACH" supplemented feature.
func (e *Emitter) emitForEach(n *ast.ForEach) {
	switch n.Source {
	case ast.ForEachArray:
		e.emitForEachArray(n)
	case ast.ForEachHashmap:
		e.emitForEachHashmap(n)
	default:
		e.errorPlaceholder("unknown FOR EACH source", nil)
	}
}

func (e *Emitter) emitForEachArray(n *ast.ForEach) {
	arrayVar, ok := n.Container.(*ast.Variable)
	if !ok {
		e.errorPlaceholder("FOR EACH over array requires a plain array variable", nil)
		return
	}
	descAddr := mangle.ArrayDescriptorName(arrayVar.Name, e.isGlobalArray(arrayVar.Name))
	descTemp := e.b.NewTemp()
	e.b.EmitLoad(descTemp, "l", "loadl", descAddr)

	lbound := e.b.NewTemp()
	e.b.EmitCall(lbound, "w", "array_lbound", []ilbuilder.Arg{{Type: "l", Value: descTemp}, {Type: "w", Value: "0"}})
	ubound := e.b.NewTemp()
	e.b.EmitCall(ubound, "w", "array_ubound", []ilbuilder.Arg{{Type: "l", Value: descTemp}, {Type: "w", Value: "0"}})

	idxAddr := e.b.NewTemp()
	e.b.EmitAlloc(idxAddr, 4, 4)
	e.b.EmitStore("storew", lbound, idxAddr)

	condLabel := e.fn.NewLabel("foreach.cond")
	bodyLabel := e.fn.NewLabel("foreach.body")
	doneLabel := e.fn.NewLabel("foreach.done")

	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(condLabel)
	idx := e.b.NewTemp()
	e.b.EmitLoad(idx, "w", "loadw", idxAddr)
	cmp := e.b.NewTemp()
	e.b.EmitCompare(cmp, "sle", "w", idx, ubound)
	e.b.EmitBranch(cmp, bodyLabel, doneLabel)

	e.b.EmitLabelDef(bodyLabel)
	elemAddr := e.b.NewTemp()
	e.b.EmitCall(elemAddr, "l", "array_get_address", []ilbuilder.Arg{{Type: "l", Value: descTemp}, {Type: "l", Value: idxAddr}})
	keyAddr := e.variableAddress(n.KeyVar, n.ElemType)
	if n.ElemType != nil && n.ElemType.IsUDT() {
		e.copyUDTIntoRaw(keyAddr, elemAddr, n.ElemType)
	} else {
		val := e.b.NewTemp()
		e.b.EmitLoad(val, string(e.qt.QBEType(n.ElemType)), loadOpFor(n.ElemType), elemAddr)
		e.b.EmitStore(storeOpFor(n.ElemType), val, keyAddr)
	}
	e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })

	idx2 := e.b.NewTemp()
	e.b.EmitLoad(idx2, "w", "loadw", idxAddr)
	next := e.b.NewTemp()
	e.b.EmitBinary(next, "w", "add", idx2, "1")
	e.b.EmitStore("storew", next, idxAddr)
	e.b.EmitJump(condLabel)

	e.b.EmitLabelDef(doneLabel)
}

// copyUDTIntoRaw is copyUDTInto parameterised over an already materialised
// source address rather than an AST value node, needed by FOR EACH where
// the source is a runtime-computed element address.
func (e *Emitter) copyUDTIntoRaw(destAddr, srcAddr string, t *sema.Type) {
	u := e.table.UDT(t.UDTId)
	if e.cfg.NeonCopy && !e.qt.HasStringFields(u) {
		if info := e.qt.SimdInfoFor(u); info.Valid && info.FullQ {
			e.emitNeonUDTCopy(destAddr, srcAddr, info)
			return
		}
	}
	offset := 0
	for _, f := range u.Fields {
		size := e.qt.TypeSize(f.Type)
		destField := e.offsetAddr(destAddr, offset)
		srcField := e.offsetAddr(srcAddr, offset)
		switch {
		case f.Type.IsUDT():
			e.copyUDTIntoRaw(destField, srcField, f.Type)
		case f.Type.IsString():
			newVal := e.b.NewTemp()
			e.b.EmitLoad(newVal, "l", "loadl", srcField)
			retained := e.facade.StringRetain(e.b, newVal)
			oldVal := e.b.NewTemp()
			e.b.EmitLoad(oldVal, "l", "loadl", destField)
			e.b.EmitStore("storel", retained, destField)
			e.facade.StringRelease(e.b, oldVal)
		default:
			tmp := e.b.NewTemp()
			storage := string(e.qt.QBEType(f.Type))
			e.b.EmitLoad(tmp, storage, loadOpFor(f.Type), srcField)
			e.b.EmitStore(storeOpFor(f.Type), tmp, destField)
		}
		offset += size
	}
}

// emitForEachHashmap walks a runtime hashmap's key set, looking up each
// value through the generic string-keyed accessor (spec.md §4.7, §3
// "Hashmap / runtime object").
func (e *Emitter) emitForEachHashmap(n *ast.ForEach) {
	mapVar, ok := n.Container.(*ast.Variable)
	if !ok {
		e.errorPlaceholder("FOR EACH over hashmap requires a plain object variable", nil)
		return
	}
	base := e.variableAddress(mapVar.Name, mapVar.Type)
	baseVal := e.b.NewTemp()
	e.b.EmitLoad(baseVal, "l", "loadl", base)

	keys := e.b.NewTemp()
	e.b.EmitCall(keys, "l", "hashmap_keys", []ilbuilder.Arg{{Type: "l", Value: baseVal}})
	size := e.b.NewTemp()
	e.b.EmitCall(size, "w", "hashmap_size", []ilbuilder.Arg{{Type: "l", Value: baseVal}})

	idxAddr := e.b.NewTemp()
	e.b.EmitAlloc(idxAddr, 4, 4)
	e.b.EmitStore("storew", "0", idxAddr)

	condLabel := e.fn.NewLabel("foreach.hm.cond")
	bodyLabel := e.fn.NewLabel("foreach.hm.body")
	doneLabel := e.fn.NewLabel("foreach.hm.done")

	e.b.EmitJump(condLabel)
	e.b.EmitLabelDef(condLabel)
	idx := e.b.NewTemp()
	e.b.EmitLoad(idx, "w", "loadw", idxAddr)
	cmp := e.b.NewTemp()
	e.b.EmitCompare(cmp, "slt", "w", idx, size)
	e.b.EmitBranch(cmp, bodyLabel, doneLabel)

	e.b.EmitLabelDef(bodyLabel)
	idxL := e.b.NewTemp()
	e.b.EmitConvert(idxL, "l", "extsw", idx)
	scaled := e.b.NewTemp()
	e.b.EmitBinary(scaled, "l", "mul", idxL, "8")
	keySlot := e.b.NewTemp()
	e.b.EmitBinary(keySlot, "l", "add", keys, scaled)
	keyVal := e.b.NewTemp()
	e.b.EmitLoad(keyVal, "l", "loadl", keySlot)
	keyStr := e.b.NewTemp()
	e.b.EmitCall(keyStr, "l", "string_new_utf8", []ilbuilder.Arg{{Type: "l", Value: keyVal}})

	keyAddr := e.variableAddress(n.KeyVar, stringType)
	e.b.EmitStore("storel", keyStr, keyAddr)

	if n.ValueVar != "" {
		valAddr := e.variableAddress(n.ValueVar, n.ElemType)
		lookupTmp := e.b.NewTemp()
		e.b.EmitAlloc(lookupTmp, 8, int64(e.qt.TypeSize(n.ElemType)))
		found := e.b.NewTemp()
		e.b.EmitCall(found, "w", "hashmap_lookup", []ilbuilder.Arg{
			{Type: "l", Value: baseVal}, {Type: "l", Value: keyVal}, {Type: "l", Value: lookupTmp},
		})
		_ = found // key came from hashmap_keys, so the lookup cannot miss
		val := e.b.NewTemp()
		e.b.EmitLoad(val, string(e.qt.QBEType(n.ElemType)), loadOpFor(n.ElemType), lookupTmp)
		e.b.EmitStore(storeOpFor(n.ElemType), val, valAddr)
	}

	e.withSammScope(n.Body, func() { e.EmitBlock(n.Body) })

	idx2 := e.b.NewTemp()
	e.b.EmitLoad(idx2, "w", "loadw", idxAddr)
	next := e.b.NewTemp()
	e.b.EmitBinary(next, "w", "add", idx2, "1")
	e.b.EmitStore("storew", next, idxAddr)
	e.b.EmitJump(condLabel)

	e.b.EmitLabelDef(doneLabel)
	e.b.EmitCall("", "", "free", []ilbuilder.Arg{{Type: "l", Value: keys}})
}
