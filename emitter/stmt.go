package emitter

import (
	"fmt"
	"strconv"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/ilbuilder"
	"github.com/fasterbasic/qbemit/internal/mangle"
	"github.com/fasterbasic/qbemit/internal/qtype"
	"github.com/fasterbasic/qbemit/sema"
)

// EmitStmt lowers one statement node and invalidates the array-element
// address cache afterward, per spec.md §5's statement-boundary rule.
func (e *Emitter) EmitStmt(node ast.Node) {
	defer e.invalidateElemCache()

	if node == nil {
		e.errorPlaceholder("null statement node", nil)
		return
	}

	switch n := node.(type) {
	case *ast.Let:
		e.emitLet(n)
	case *ast.Print:
		e.emitPrint(n)
	case *ast.Input:
		e.emitInput(n)
	case *ast.End:
		if !e.facade.Call("", "basic_end", []ilbuilder.Arg{{Type: "w", Value: "0"}}) {
			e.errorPlaceholder("basic_end rejected by the runtime ABI table", nil)
		}
	case *ast.Return:
		e.emitReturn(n)
	case *ast.Dim:
		e.emitDim(n)
	case *ast.Redim:
		e.emitRedim(n)
	case *ast.Erase:
		e.emitErase(n)
	case *ast.Read:
		e.emitRead(n)
	case *ast.Restore:
		e.emitRestore(n)
	case *ast.Local:
		e.emitLocal(n)
	case *ast.CallStmt:
		e.emitCallStmt(n)
	case *ast.Delete:
		e.emitDelete(n)
	case *ast.SliceAssign:
		e.emitSliceAssign(n)
	case *ast.ClassDecl:
		e.b.Comment(fmt.Sprintf("class declaration id=%d", n.ClassId))
	case *ast.SharedDecl:
		e.b.Comment(fmt.Sprintf("shared %s", n.Name))
		e.fn.AddShared(n.Name)
	case *ast.GlobalDecl:
		e.b.Comment(fmt.Sprintf("global %s", n.Name))
	case *ast.Gosub:
		e.emitGosub(n)
	case *ast.GosubReturn:
		e.emitGosubReturn()
	case *ast.If:
		e.emitMethodIf(n)
	case *ast.For:
		e.emitMethodFor(n)
	case *ast.ForEach:
		e.emitForEach(n)
	case *ast.While:
		e.emitMethodWhile(n)
	case *ast.Do:
		e.emitMethodDo(n)
	default:
		e.errorPlaceholder(fmt.Sprintf("unhandled statement kind %v", node.Kind()), nil)
	}
}

// EmitBlock lowers an ordered list of statements.
func (e *Emitter) EmitBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		e.EmitStmt(s)
	}
}

// --- LET ---

// emitLet resolves and stores through an l-value in the seven-way priority
// order of spec.md §4.6. UDT-to-UDT whole copies and runtime-object
// subscript sets carry their own retain/release discipline; scalar stores
// go through the ordinary typed store path.
func (e *Emitter) emitLet(n *ast.Let) {
	switch n.Target.Kind {
	case ast.LValueClassMemberChain:
		e.emitLetClassMember(n)
	case ast.LValueUDTMemberChain:
		e.emitLetUDTMember(n)
	case ast.LValueUDTWhole:
		e.emitLetUDTWhole(n)
	case ast.LValueObjectSubscript:
		e.emitLetObjectSubscript(n)
	case ast.LValueArrayElemUDT:
		e.emitLetArrayElemUDT(n)
	case ast.LValueArrayElem:
		e.emitLetArrayElemScalar(n)
	case ast.LValueScalar:
		e.emitLetScalar(n)
	default:
		e.errorPlaceholder("unknown LET target kind", nil)
	}
}

func (e *Emitter) emitLetClassMember(n *ast.Let) {
	ma := &ast.MemberAccess{Base: n.Target.Base, Fields: n.Target.Fields}
	addr, fieldType, _ := e.memberChainAddress(ma)
	e.storeValueAt(addr, fieldType, n.Value)
}

func (e *Emitter) emitLetUDTMember(n *ast.Let) {
	ma := &ast.MemberAccess{Base: n.Target.Base, Fields: n.Target.Fields}
	addr, fieldType, _ := e.memberChainAddress(ma)
	e.storeValueAt(addr, fieldType, n.Value)
}

// emitLetUDTWhole copies a whole UDT into another, field by field, routing
// through the NEON bulk-copy path when eligible (spec.md §4.8) and applying
// string-field retain/release for every STRING field otherwise, in
// retain-new -> store -> release-old order so self-assignment (a = a) never
// drops a string to a zero refcount before it is re-retained (spec.md §5).
func (e *Emitter) emitLetUDTWhole(n *ast.Let) {
	destAddr := e.lvalueBaseAddress(n.Target)
	e.copyUDTInto(destAddr, n.Value, n.Target.Type)
}

func (e *Emitter) offsetAddr(base string, offset int) string {
	if offset == 0 {
		return base
	}
	dest := e.b.NewTemp()
	e.b.EmitBinary(dest, "l", "add", base, strconv.Itoa(offset))
	return dest
}

// emitLetObjectSubscript lowers `obj(key) = value` for runtime objects
// exposing a string-keyed Set function (spec.md §4.6, §3 "Hashmap /
// runtime object").
func (e *Emitter) emitLetObjectSubscript(n *ast.Let) {
	obj, ok := e.table.Objects[n.Target.ObjectName]
	if !ok {
		e.errorPlaceholder(fmt.Sprintf("unknown object type for subscript set on %q", n.Target.VarName), nil)
		return
	}
	base := e.variableAddress(n.Target.VarName, nil)
	baseVal := e.b.NewTemp()
	e.b.EmitLoad(baseVal, "l", "loadl", base)

	var keyVal string
	if len(n.Target.Indices) > 0 {
		keyVal = e.EmitExpr(n.Target.Indices[0])
	}
	val := e.EmitExpr(n.Value)
	e.b.EmitCall("", "", obj.SetFn, []ilbuilder.Arg{
		{Type: "l", Value: baseVal},
		{Type: "l", Value: keyVal},
		{Type: "l", Value: val},
	})
}

func (e *Emitter) emitLetArrayElemUDT(n *ast.Let) {
	aa := &ast.ArrayAccess{ArrayName: n.Target.ArrayName, ElemType: n.Target.Type, Indices: n.Target.Indices}
	destAddr := e.arrayElementAddress(aa)
	e.copyUDTInto(destAddr, n.Value, n.Target.Type)
}

// copyUDTInto is emitLetUDTWhole's body parameterised over an already
// materialised destination address, shared by plain UDT assignment and
// array-element UDT assignment.
func (e *Emitter) copyUDTInto(destAddr string, valueNode ast.Node, t *sema.Type) {
	srcAddr := e.EmitExpr(valueNode)
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
		if f.Type.IsUDT() {
			e.copyUDTIntoRaw(destField, srcField, f.Type)
		} else if f.Type.IsString() {
			newVal := e.b.NewTemp()
			e.b.EmitLoad(newVal, "l", "loadl", srcField)
			retained := e.facade.StringRetain(e.b, newVal)
			oldVal := e.b.NewTemp()
			e.b.EmitLoad(oldVal, "l", "loadl", destField)
			e.b.EmitStore("storel", retained, destField)
			e.facade.StringRelease(e.b, oldVal)
		} else {
			tmp := e.b.NewTemp()
			storage := string(e.qt.QBEType(f.Type))
			e.b.EmitLoad(tmp, storage, loadOpFor(f.Type), srcField)
			e.b.EmitStore(storeOpFor(f.Type), tmp, destField)
		}
		offset += size
	}
}

func (e *Emitter) emitLetArrayElemScalar(n *ast.Let) {
	aa := &ast.ArrayAccess{ArrayName: n.Target.ArrayName, ElemType: n.Target.Type, Indices: n.Target.Indices}
	addr := e.arrayElementAddress(aa)
	e.storeValueAt(addr, n.Target.Type, n.Value)
}

func (e *Emitter) emitLetScalar(n *ast.Let) {
	addr := e.variableAddress(n.Target.VarName, n.Target.Type)
	e.storeValueAt(addr, n.Target.Type, n.Value)
}

// storeValueAt emits value, retaining/releasing around the store when
// target is a STRING (self-assignment-safe per spec.md §5), otherwise a
// plain coerced store.
func (e *Emitter) storeValueAt(addr string, target *sema.Type, value ast.Node) {
	if target != nil && target.IsString() {
		raw := e.EmitExpr(value)
		retained := e.facade.StringRetain(e.b, raw)
		old := e.b.NewTemp()
		e.b.EmitLoad(old, "l", "loadl", addr)
		e.b.EmitStore("storel", retained, addr)
		e.facade.StringRelease(e.b, old)
		return
	}
	val := e.emitCoerced(value, target)
	e.b.EmitStore(storeOpFor(target), val, addr)
}

// lvalueBaseAddress materialises the address of a whole-UDT LET target.
func (e *Emitter) lvalueBaseAddress(lv ast.LValue) string {
	if len(lv.Fields) > 0 {
		ma := &ast.MemberAccess{Base: lv.Base, Fields: lv.Fields}
		addr, _, _ := e.memberChainAddress(ma)
		return addr
	}
	return e.variableAddress(lv.VarName, lv.Type)
}

// --- PRINT / INPUT / END ---

func (e *Emitter) emitPrint(n *ast.Print) {
	for _, item := range n.Items {
		val := e.EmitExpr(item.Expr)
		switch {
		case item.Type != nil && item.Type.IsString():
			e.facade.PrintStringDesc(val)
		case item.Type != nil && item.Type.Prim == sema.PrimSingle:
			e.facade.PrintFloat(val)
		case item.Type != nil && item.Type.Prim == sema.PrimDouble:
			e.facade.PrintDouble(val)
		default:
			e.facade.PrintInt(val)
		}
		if item.TrailingTab {
			e.facade.PrintTab()
		}
	}
	if !n.SuppressNewline {
		e.facade.PrintNewline()
	}
}

func (e *Emitter) emitInput(n *ast.Input) {
	if n.Prompt != "" {
		label := e.b.RegisterString(n.Prompt)
		str := e.facade.StringNewUTF8(e.b, label)
		e.facade.PrintStringDesc(str)
	}
	addr := e.variableAddress(n.Target.Name, n.Target.Type)
	switch {
	case n.Target.Type != nil && n.Target.Type.IsString():
		e.b.EmitCall("", "", "basic_input_string", []ilbuilder.Arg{{Type: "l", Value: addr}})
	case n.Target.Type != nil && n.Target.Type.Prim == sema.PrimSingle:
		e.b.EmitCall("", "", "basic_input_float", []ilbuilder.Arg{{Type: "l", Value: addr}})
	case n.Target.Type != nil && n.Target.Type.Prim == sema.PrimDouble:
		e.b.EmitCall("", "", "basic_input_double", []ilbuilder.Arg{{Type: "l", Value: addr}})
	default:
		e.b.EmitCall("", "", "basic_input_int", []ilbuilder.Arg{{Type: "l", Value: addr}})
	}
}

// --- RETURN ---

func (e *Emitter) emitReturn(n *ast.Return) {
	switch n.Context {
	case ast.ReturnMethodVoid:
		e.b.EmitReturn("")
	case ast.ReturnMethodValue:
		val := e.emitCoerced(n.Value, n.ReturnType)
		e.b.EmitReturn(val)
	case ast.ReturnFunctionCFG:
		// CFG mode stores into the canonical return slot; the CFG's own
		// exit-block terminator emits the actual `ret` (spec.md §4.9).
		slot := qtype.ReturnVariableName(e.fn.Name, n.ReturnType)
		val := e.emitCoerced(n.Value, n.ReturnType)
		e.b.EmitStore(storeOpFor(n.ReturnType), val, slot)
	}
}

// --- DIM / REDIM / ERASE ---

func (e *Emitter) emitDim(n *ast.Dim) {
	switch n.DimKind {
	case ast.DimClassScalar:
		addr := e.variableAddress(n.Name, n.Type)
		e.b.EmitStore("storel", "0", addr)
	case ast.DimObjectScalar:
		addr := e.variableAddress(n.Name, n.Type)
		obj, ok := e.table.Objects[n.ObjectType]
		if !ok {
			e.errorPlaceholder(fmt.Sprintf("unknown object type %q", n.ObjectType), nil)
			return
		}
		created := e.b.NewTemp()
		args := []ilbuilder.Arg{}
		if obj.DefaultArgs != "" {
			args = append(args, ilbuilder.Arg{Type: "l", Value: obj.DefaultArgs})
		}
		e.b.EmitCall(created, "l", obj.ConstructorFn, args)
		e.b.EmitStore("storel", created, addr)
	case ast.DimArray:
		e.emitDimArray(n)
	case ast.DimMethodLocal:
		addr, ok := e.localAddr[n.Name]
		if !ok {
			addr = e.allocLocal(n.Name, n.Type)
		}
		if n.Initializer != nil {
			e.storeValueAt(addr, n.Type, n.Initializer)
		}
	}
}

// emitDimArray packs each dimension's (lower, upper) bound pair into the
// shared bounds buffer, creates the descriptor with array_new (or
// array_new_custom for UDT elements), and stores it into the array's
// descriptor slot, global or local as the symbol table says.
func (e *Emitter) emitDimArray(n *ast.Dim) {
	rank := len(n.Bounds)
	boundsBuf := e.boundsBuffer()
	for i, bound := range n.Bounds {
		lower := e.emitCoerced(bound.Lower, intType)
		upper := e.emitCoerced(bound.Upper, intType)
		lowSlot := e.offsetAddr(boundsBuf, i*8)
		highSlot := e.offsetAddr(boundsBuf, i*8+4)
		e.b.EmitStore("storew", lower, lowSlot)
		e.b.EmitStore("storew", upper, highSlot)
	}
	desc := e.b.NewTemp()
	if n.ElemType != nil && n.ElemType.IsUDT() {
		elemSize := e.qt.TypeSize(n.ElemType)
		e.b.EmitCall(desc, "l", "array_new_custom", []ilbuilder.Arg{
			{Type: "w", Value: strconv.Itoa(elemSize)},
			{Type: "w", Value: strconv.Itoa(rank)},
			{Type: "l", Value: boundsBuf},
			{Type: "l", Value: "0"},
		})
	} else {
		e.b.EmitCall(desc, "l", "array_new", []ilbuilder.Arg{
			{Type: "w", Value: strconv.Itoa(e.qt.TypeSuffixChar(n.ElemType))},
			{Type: "w", Value: strconv.Itoa(rank)},
			{Type: "l", Value: boundsBuf},
			{Type: "l", Value: "0"},
		})
	}
	descAddr := mangle.ArrayDescriptorName(n.Name, e.isGlobalArray(n.Name))
	e.b.EmitStore("storel", desc, descAddr)
}

func (e *Emitter) emitRedim(n *ast.Redim) {
	descAddr := mangle.ArrayDescriptorName(n.ArrayName, e.isGlobalArray(n.ArrayName))
	descTemp := e.b.NewTemp()
	e.b.EmitLoad(descTemp, "l", "loadl", descAddr)

	boundsBuf := e.boundsBuffer()
	for i, bound := range n.Bounds {
		lower := e.emitCoerced(bound.Lower, intType)
		upper := e.emitCoerced(bound.Upper, intType)
		e.b.EmitStore("storew", lower, e.offsetAddr(boundsBuf, i*8))
		e.b.EmitStore("storew", upper, e.offsetAddr(boundsBuf, i*8+4))
	}
	preserve := "0"
	if n.Preserve {
		preserve = "1"
	}
	newDesc := e.b.NewTemp()
	e.b.EmitCall(newDesc, "l", "array_redim", []ilbuilder.Arg{
		{Type: "l", Value: descTemp},
		{Type: "l", Value: boundsBuf},
		{Type: "w", Value: preserve},
	})
	e.b.EmitStore("storel", newDesc, descAddr)
}

func (e *Emitter) emitErase(n *ast.Erase) {
	for _, name := range n.ArrayNames {
		descAddr := mangle.ArrayDescriptorName(name, e.isGlobalArray(name))
		descTemp := e.b.NewTemp()
		e.b.EmitLoad(descTemp, "l", "loadl", descAddr)
		e.b.EmitCall("", "", "array_erase", []ilbuilder.Arg{{Type: "l", Value: descTemp}})
		e.b.EmitStore("storel", "0", descAddr)
	}
}

// --- READ / RESTORE ---

// emitRead pulls the next value(s) from the packed DATA section via the
// global data pointer, bounds-checked against the data-end constant
// (spec.md §4.10 step 4, supplemented feature).
func (e *Emitter) emitRead(n *ast.Read) {
	for _, v := range n.Targets {
		ptr := e.b.NewTemp()
		e.b.EmitLoad(ptr, "l", "loadl", e.dataPointerGlobal)
		end := e.b.NewTemp()
		e.b.EmitLoad(end, "l", "loadl", e.dataEndConst)
		endCmp := e.b.NewTemp()
		e.b.EmitCompare(endCmp, "sge", "l", ptr, end)
		okLabel := e.fn.NewLabel("read.ok")
		failLabel := e.fn.NewLabel("read.fail")
		e.b.EmitBranch(endCmp, failLabel, okLabel)
		e.b.EmitLabelDef(failLabel)
		e.b.EmitCall("", "", "fb_error_out_of_data", nil)
		e.b.EmitCall("", "", "basic_end", []ilbuilder.Arg{{Type: "w", Value: "1"}})
		e.b.EmitLabelDef(okLabel)

		addr := e.variableAddress(v.Name, v.Type)
		raw := e.b.NewTemp()
		e.b.EmitLoad(raw, "l", "loadl", ptr)

		switch {
		case v.Type != nil && v.Type.IsString():
			str := e.b.NewTemp()
			e.b.EmitCall(str, "l", "string_new_utf8", []ilbuilder.Arg{{Type: "l", Value: raw}})
			retained := e.facade.StringRetain(e.b, str)
			e.b.EmitStore("storel", retained, addr)
		case v.Type != nil && (v.Type.Prim == sema.PrimSingle || v.Type.Prim == sema.PrimDouble):
			asDouble := e.b.NewTemp()
			e.b.EmitConvert(asDouble, "d", "cast", raw)
			if v.Type.Prim == sema.PrimSingle {
				asSingle := e.b.NewTemp()
				e.b.EmitConvert(asSingle, "s", "truncd", asDouble)
				e.b.EmitStore("stores", asSingle, addr)
			} else {
				e.b.EmitStore("stored", asDouble, addr)
			}
		default:
			e.b.EmitStore(storeOpFor(v.Type), raw, addr)
		}

		nextPtr := e.b.NewTemp()
		e.b.EmitBinary(nextPtr, "l", "add", ptr, "8")
		e.b.EmitStore("storel", nextPtr, e.dataPointerGlobal)
	}
}

func (e *Emitter) emitRestore(n *ast.Restore) {
	switch n.Target {
	case ast.RestoreStart:
		e.b.EmitStore("storel", "$__data_start", e.dataPointerGlobal)
	case ast.RestoreLineLabel, ast.RestoreUserLabel:
		e.b.EmitStore("storel", "$__data_"+n.Label, e.dataPointerGlobal)
	}
}

// --- LOCAL / CALL / DELETE ---

// allocLocal reserves a stack slot for a method-mode local: alloc4 for
// values of at most 4 bytes, alloc16 for full-Q SIMD-eligible UDTs, alloc8
// otherwise; UDT slots are zeroed with memset. The orchestrator's
// pre-scan (preallocateLocals / preallocateBlockLocals) calls this from the
// entry block, and emitLocal and a method-local DIM reuse that slot, so
// they only allocate here for a name the pre-scan did not see.
func (e *Emitter) allocLocal(name string, t *sema.Type) string {
	addr := e.b.NewTemp()
	size := int64(e.qt.TypeSize(t))
	alignment := 8
	if t != nil && t.IsUDT() {
		if info := e.qt.SimdInfoFor(e.table.UDT(t.UDTId)); info.Valid && info.FullQ {
			alignment = 16
		}
	} else if size <= 4 {
		alignment = 4
	}
	e.b.EmitAlloc(addr, alignment, size)
	if t != nil && t.IsUDT() {
		e.b.EmitCall("", "", "memset", []ilbuilder.Arg{
			{Type: "l", Value: addr}, {Type: "w", Value: "0"}, {Type: "l", Value: strconv.FormatInt(size, 10)},
		})
	}
	e.localAddr[name] = addr
	return addr
}

func (e *Emitter) emitLocal(n *ast.Local) {
	addr, ok := e.localAddr[n.Name]
	if !ok {
		addr = e.allocLocal(n.Name, n.Type)
	}
	if n.Initializer != nil {
		e.storeValueAt(addr, n.Type, n.Initializer)
	}
}

func (e *Emitter) emitCallStmt(n *ast.CallStmt) {
	e.EmitExpr(&ast.Call{Name: n.Name, Args: n.Args})
}

// emitDelete releases a class instance (ref-decrement to destructor) or a
// runtime object, per spec.md §4.6.
func (e *Emitter) emitDelete(n *ast.Delete) {
	val := e.EmitExpr(n.Target)
	e.b.EmitCall("", "", "class_object_delete", []ilbuilder.Arg{{Type: "l", Value: val}})
}

func (e *Emitter) emitSliceAssign(n *ast.SliceAssign) {
	addr := e.variableAddress(n.Target.Name, n.Target.Type)
	cur := e.b.NewTemp()
	e.b.EmitLoad(cur, "l", "loadl", addr)
	from := e.emitCoerced(n.From, intType)
	to := e.emitCoerced(n.To, intType)
	repl := e.EmitExpr(n.Replacement)
	newVal := e.b.NewTemp()
	e.b.EmitCall(newVal, "l", "string_slice_assign", []ilbuilder.Arg{
		{Type: "l", Value: cur}, {Type: "w", Value: from}, {Type: "w", Value: to}, {Type: "l", Value: repl},
	})
	retained := e.facade.StringRetain(e.b, newVal)
	e.b.EmitStore("storel", retained, addr)
	e.facade.StringRelease(e.b, cur)
}

// --- GOSUB ---

// emitGosub pushes the resumption label onto the GOSUB stack and
// jumps to the target (spec.md §4.10 step 4, supplemented feature).
func (e *Emitter) emitGosub(n *ast.Gosub) {
	sp := e.b.NewTemp()
	e.b.EmitLoad(sp, "w", "loadw", e.gosubIndexGlobal)
	slotAddr := e.b.NewTemp()
	offsetVal := e.b.NewTemp()
	e.b.EmitConvert(offsetVal, "l", "extsw", sp)
	scaled := e.b.NewTemp()
	e.b.EmitBinary(scaled, "l", "mul", offsetVal, "8")
	e.b.EmitBinary(slotAddr, "l", "add", e.gosubStackGlobal, scaled)

	resumeLabel := e.fn.NewLabel("gosub.resume")
	e.b.EmitStore("storel", resumeLabel, slotAddr)

	newSP := e.b.NewTemp()
	e.b.EmitBinary(newSP, "w", "add", sp, "1")
	e.b.EmitStore("storew", newSP, e.gosubIndexGlobal)

	e.b.EmitJump("@" + n.TargetLabel)
	e.b.EmitLabelDef(resumeLabel)
}

func (e *Emitter) emitGosubReturn() {
	sp := e.b.NewTemp()
	e.b.EmitLoad(sp, "w", "loadw", e.gosubIndexGlobal)
	newSP := e.b.NewTemp()
	e.b.EmitBinary(newSP, "w", "sub", sp, "1")
	e.b.EmitStore("storew", newSP, e.gosubIndexGlobal)

	offsetVal := e.b.NewTemp()
	e.b.EmitConvert(offsetVal, "l", "extsw", newSP)
	scaled := e.b.NewTemp()
	e.b.EmitBinary(scaled, "l", "mul", offsetVal, "8")
	slotAddr := e.b.NewTemp()
	e.b.EmitBinary(slotAddr, "l", "add", e.gosubStackGlobal, scaled)

	target := e.b.NewTemp()
	e.b.EmitLoad(target, "l", "loadl", slotAddr)
	// jmpind is the NEON-pseudo-opcode family's sibling for GOSUB
	// resumption: an indirect jump to a block label value, something QBE's
	// own grammar has no instruction for (spec.md §9's "jump table"
	// backend note applies equally here).
	e.b.EmitRaw(fmt.Sprintf("jmpind %s", target))
}
