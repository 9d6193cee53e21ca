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

var intType = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimInteger}
var longType = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimLong}
var doubleType = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimDouble}
var stringType = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimString}

// EmitExpr recursively lowers node into a single temporary carrying the
// result, per spec.md §4.5. A nil node is the "malformed AST" case and
// returns a placeholder per spec.md §7.
func (e *Emitter) EmitExpr(node ast.Node) string {
	if node == nil {
		return e.errorPlaceholder("null expression node", nil)
	}
	switch n := node.(type) {
	case *ast.NumberLit:
		return e.emitNumberLit(n)
	case *ast.StringLit:
		return e.emitStringLit(n)
	case *ast.Variable:
		return e.emitVariable(n)
	case *ast.Binary:
		return e.emitBinary(n)
	case *ast.Unary:
		return e.emitUnary(n)
	case *ast.ArrayAccess:
		addr := e.arrayElementAddress(n)
		if n.ElemType != nil && n.ElemType.IsUDT() {
			// UDTs are pass-by-reference, same as a UDT-valued variable
			// (spec.md §4.5 "Array access").
			return addr
		}
		dest := e.b.NewTemp()
		e.b.EmitLoad(dest, string(e.qt.QBEType(n.ElemType)), loadOpFor(n.ElemType), addr)
		return dest
	case *ast.MemberAccess:
		return e.emitMemberAccessLoad(n)
	case *ast.IIF:
		return e.emitIIF(n)
	case *ast.Call:
		return e.emitCall(n)
	case *ast.MethodCall:
		return e.emitMethodCall(n)
	case *ast.NewExpr:
		return e.emitNew(n)
	case *ast.MeExpr:
		return "%me"
	case *ast.IsExpr:
		return e.emitIs(n)
	case *ast.SuperCall:
		return e.emitSuperCall(n)
	case *ast.BuiltinCall:
		return e.emitBuiltin(n)
	case *ast.PluginCall:
		return e.emitPluginCall(n)
	default:
		return e.errorPlaceholder(fmt.Sprintf("unhandled expression kind %v", node.Kind()), nil)
	}
}

// --- Literals ---

func (e *Emitter) emitNumberLit(n *ast.NumberLit) string {
	if n.Expected != nil && n.Expected.Category == sema.CatPrimitive {
		switch n.Expected.Prim {
		case sema.PrimSingle:
			return formatFloatLit(numberLitValue(n), 's')
		case sema.PrimDouble:
			return formatFloatLit(numberLitValue(n), 'd')
		}
	}
	if !n.IsInt {
		// Expected type unknown and the literal is floating: default to
		// double precision, the widest float storage class.
		return formatFloatLit(n.FloatVal, 'd')
	}
	return strconv.FormatInt(n.IntVal, 10)
}

// numberLitValue normalises a literal's numeric value to a float64 for
// formatting purposes regardless of how it was originally scanned.
func numberLitValue(n *ast.NumberLit) float64 {
	if n.IsInt {
		return float64(n.IntVal)
	}
	return n.FloatVal
}

func formatFloatLit(v float64, suffix byte) string {
	return fmt.Sprintf("%c_%s", suffix, strconv.FormatFloat(v, 'g', -1, 64))
}

func (e *Emitter) emitStringLit(n *ast.StringLit) string {
	label := e.b.RegisterString(n.Value)
	return e.facade.StringNewUTF8(e.b, label)
}

// --- Variables ---

func (e *Emitter) variableAddress(name string, t *sema.Type) string {
	if addr, ok := e.localAddr[name]; ok {
		return addr
	}
	v, ok := e.table.Variables[name]
	isGlobal := ok && v.Scope == sema.ScopeGlobal
	return mangle.Mangle(name, isGlobal)
}

func (e *Emitter) emitVariable(n *ast.Variable) string {
	v, ok := e.table.Variables[n.Name]
	if ok && v.Scope == sema.ScopeParam {
		// Parameters already arrive as SSA temporaries (spec.md §4.5).
		return mangle.Mangle(n.Name, false)
	}
	addr := e.variableAddress(n.Name, n.Type)
	if n.Type != nil && n.Type.IsUDT() {
		// UDT-valued variables hand back their address, not their
		// contents — the caller must know UDTs are pass-by-reference.
		return addr
	}
	dest := e.b.NewTemp()
	e.b.EmitLoad(dest, string(e.qt.QBEType(n.Type)), loadOpFor(n.Type), addr)
	return dest
}

func loadOpFor(t *sema.Type) string {
	if t == nil || t.Category != sema.CatPrimitive {
		return "loadl"
	}
	switch t.Prim {
	case sema.PrimByte:
		return "loadsb"
	case sema.PrimUByte:
		return "loadub"
	case sema.PrimShort:
		return "loadsh"
	case sema.PrimUShort:
		return "loaduh"
	case sema.PrimInteger, sema.PrimUInteger:
		return "loadw"
	case sema.PrimLong, sema.PrimULong, sema.PrimString:
		return "loadl"
	case sema.PrimSingle:
		return "loads"
	case sema.PrimDouble:
		return "loadd"
	}
	return "loadl"
}

func storeOpFor(t *sema.Type) string {
	if t == nil || t.Category != sema.CatPrimitive {
		return "storel"
	}
	switch t.Prim {
	case sema.PrimByte, sema.PrimUByte:
		return "storeb"
	case sema.PrimShort, sema.PrimUShort:
		return "storeh"
	case sema.PrimInteger, sema.PrimUInteger:
		return "storew"
	case sema.PrimLong, sema.PrimULong, sema.PrimString:
		return "storel"
	case sema.PrimSingle:
		return "stores"
	case sema.PrimDouble:
		return "stored"
	}
	return "storel"
}

// --- Binary / unary ---

func (e *Emitter) exprType(node ast.Node) *sema.Type {
	switch n := node.(type) {
	case *ast.NumberLit:
		if n.Expected != nil {
			return n.Expected
		}
		if n.IsInt {
			return intType
		}
		return doubleType
	case *ast.StringLit:
		return stringType
	case *ast.Variable:
		return n.Type
	case *ast.ArrayAccess:
		return n.ElemType
	case *ast.Binary:
		if n.Op.IsComparison() {
			return intType
		}
		if n.Op == ast.OpConcat {
			return stringType
		}
		return qtype.PromotedType(e.exprType(n.Left), e.exprType(n.Right))
	case *ast.Unary:
		return e.exprType(n.Operand)
	case *ast.IIF:
		return n.ResultType
	case *ast.MethodCall:
		return e.methodReturnType(n)
	case *ast.NewExpr:
		return &sema.Type{Category: sema.CatClass, ClassId: n.ClassId}
	case *ast.PluginCall:
		return n.ReturnType
	case *ast.MemberAccess:
		return e.memberChainType(n)
	}
	return longType
}

func (e *Emitter) methodReturnType(n *ast.MethodCall) *sema.Type {
	if n.BaseType != nil && n.BaseType.IsClass() {
		if m, _, ok := e.table.MethodSlot(n.BaseType.ClassId, n.Method); ok {
			return m.ReturnType
		}
	}
	if n.BaseType != nil && n.BaseType.Category == sema.CatRuntimeObject {
		if obj, ok := e.table.Objects[n.BaseType.ObjectKind]; ok {
			if m, ok := obj.Methods[n.Method]; ok {
				return m.ReturnType
			}
		}
	}
	return longType
}

func (e *Emitter) memberChainType(n *ast.MemberAccess) *sema.Type {
	t := e.exprType(n.Base)
	for _, field := range n.Fields {
		if t == nil {
			return longType
		}
		if t.IsClass() {
			cls := e.table.Class(t.ClassId)
			if cls == nil {
				return longType
			}
			for i, f := range cls.Fields {
				_ = i
				if f.Name == field {
					t = f.Type
					break
				}
			}
			continue
		}
		if t.IsUDT() {
			u := e.table.UDT(t.UDTId)
			_, ft, ok := e.qt.FieldOffset(u, field)
			if !ok {
				return longType
			}
			t = ft
		}
	}
	return t
}

func (e *Emitter) emitBinary(n *ast.Binary) string {
	leftType, rightType := e.exprType(n.Left), e.exprType(n.Right)
	if leftType != nil && leftType.IsUDT() && rightType != nil && rightType.IsUDT() {
		return e.emitUDTBinary(n, leftType)
	}
	if n.Op == ast.OpConcat || leftType.IsString() || rightType.IsString() {
		left := e.EmitExpr(n.Left)
		right := e.EmitExpr(n.Right)
		if n.Op.IsComparison() {
			dest := e.b.NewTemp()
			e.b.EmitCall(dest, "w", "string_compare", []ilbuilder.Arg{{Type: "l", Value: left}, {Type: "l", Value: right}})
			cmpDest := e.b.NewTemp()
			e.b.EmitCompare(cmpDest, compareSuffix(n.Op), "w", dest, "0")
			return cmpDest
		}
		dest := e.b.NewTemp()
		e.b.EmitCall(dest, "l", "string_concat", []ilbuilder.Arg{{Type: "l", Value: left}, {Type: "l", Value: right}})
		return dest
	}

	promoted := qtype.PromotedType(leftType, rightType)
	left := e.emitCoerced(n.Left, promoted)
	right := e.emitCoerced(n.Right, promoted)
	storage := string(e.qt.QBEType(promoted))

	if n.Op.IsComparison() {
		dest := e.b.NewTemp()
		e.b.EmitCompare(dest, compareSuffix(n.Op), storage, left, right)
		return dest
	}

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, arithOp(n.Op), left, right)
		return dest
	case ast.OpDiv:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "div", left, right)
		return dest
	case ast.OpMod:
		if promoted.Prim == sema.PrimSingle || promoted.Prim == sema.PrimDouble {
			dest := e.b.NewTemp()
			e.b.EmitCall(dest, storage, "fmod", []ilbuilder.Arg{{Type: storage, Value: left}, {Type: storage, Value: right}})
			return dest
		}
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "rem", left, right)
		return dest
	case ast.OpPow:
		// `^` lowers to pow with result narrowed back to the promoted
		// type (spec.md §4.5).
		asDouble := storage
		lArg, rArg := left, right
		if storage != string(qtype.D) {
			lArg = e.convert(left, promoted, doubleType)
			rArg = e.convert(right, promoted, doubleType)
			asDouble = string(qtype.D)
		}
		powResult := e.b.NewTemp()
		e.b.EmitCall(powResult, asDouble, "pow", []ilbuilder.Arg{{Type: asDouble, Value: lArg}, {Type: asDouble, Value: rArg}})
		if storage != string(qtype.D) {
			return e.convert(powResult, doubleType, promoted)
		}
		return powResult
	case ast.OpBitAnd:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "and", left, right)
		return dest
	case ast.OpBitOr:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "or", left, right)
		return dest
	case ast.OpBitXor:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "xor", left, right)
		return dest
	case ast.OpAnd:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "and", left, right)
		return dest
	case ast.OpOr:
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, storage, "or", left, right)
		return dest
	}
	return e.errorPlaceholder("unhandled binary operator", nil)
}

// emitUDTBinary lowers a whole-UDT arithmetic expression (`a + b` where both
// operands are the same UDT), the standalone counterpart of the vectorised
// FOR-loop rewrite in simd.go: here the Expression Emitter reaches it
// directly from an ordinary LET or nested expression, not a loop pattern
// match (spec.md §4.8 "whole-UDT arithmetic"). Eligible full-Q, string-free
// operands go through the NEON path; everything else falls back to
// field-by-field scalar arithmetic into a scratch buffer.
func (e *Emitter) emitUDTBinary(n *ast.Binary, t *sema.Type) string {
	op := ""
	switch n.Op {
	case ast.OpAdd:
		op = "add"
	case ast.OpSub:
		op = "sub"
	case ast.OpMul:
		op = "mul"
	case ast.OpDiv:
		op = "div"
	default:
		return e.errorPlaceholder("unsupported whole-UDT binary operator", nil)
	}

	leftAddr := e.udtExprAddress(n.Left)
	rightAddr := e.udtExprAddress(n.Right)
	dest := e.udtScratchBuffer()

	if info, ok := e.neonUDTArithEligible(t); ok {
		e.emitNeonUDTArith(dest, leftAddr, rightAddr, info, op)
		return dest
	}

	u := e.table.UDT(t.UDTId)
	offset := 0
	for _, f := range u.Fields {
		size := e.qt.TypeSize(f.Type)
		storage := string(e.qt.QBEType(f.Type))
		lv := e.b.NewTemp()
		e.b.EmitLoad(lv, storage, loadOpFor(f.Type), e.offsetAddr(leftAddr, offset))
		rv := e.b.NewTemp()
		e.b.EmitLoad(rv, storage, loadOpFor(f.Type), e.offsetAddr(rightAddr, offset))
		res := e.b.NewTemp()
		e.b.EmitBinary(res, storage, op, lv, rv)
		e.b.EmitStore(storeOpFor(f.Type), res, e.offsetAddr(dest, offset))
		offset += size
	}
	return dest
}

// udtExprAddress resolves the address of a UDT-valued rvalue expression,
// the handful of shapes whole-UDT arithmetic can appear over (spec.md
// §4.5's UDTs-are-pass-by-reference convention).
func (e *Emitter) udtExprAddress(node ast.Node) string {
	switch n := node.(type) {
	case *ast.Variable:
		return e.variableAddress(n.Name, n.Type)
	case *ast.ArrayAccess:
		return e.arrayElementAddress(n)
	case *ast.MemberAccess:
		addr, _, _ := e.memberChainAddress(n)
		return addr
	default:
		return e.errorPlaceholder("unsupported whole-UDT operand shape", nil)
	}
}

func arithOp(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "add"
	case ast.OpSub:
		return "sub"
	case ast.OpMul:
		return "mul"
	}
	return "add"
}

func compareSuffix(op ast.BinaryOp) string {
	switch op {
	case ast.OpEq:
		return "eq"
	case ast.OpNeq:
		return "ne"
	case ast.OpLt:
		return "slt"
	case ast.OpLe:
		return "sle"
	case ast.OpGt:
		return "sgt"
	case ast.OpGe:
		return "sge"
	}
	return "eq"
}

// emitCoerced emits node and converts its value to target if needed.
func (e *Emitter) emitCoerced(node ast.Node, target *sema.Type) string {
	val := e.EmitExpr(node)
	srcType := e.exprType(node)
	return e.convert(val, srcType, target)
}

func (e *Emitter) convert(val string, from, to *sema.Type) string {
	if from == nil || to == nil || !qtype.NeedsConversion(from, to) {
		return val
	}
	op := qtype.ConversionOp(from, to)
	destType := string(e.qt.QBEType(to))
	dest := e.b.NewTemp()
	switch op {
	case qtype.IntToDoubleW:
		e.b.EmitConvert(dest, destType, "swtof", val)
	case qtype.IntToDoubleL:
		e.b.EmitConvert(dest, destType, "sltof", val)
	case qtype.DoubleToLong:
		step1 := e.b.NewTemp()
		e.b.EmitConvert(step1, "w", "dtosi", val)
		e.b.EmitConvert(dest, "l", "extsw", step1)
	case qtype.FloatToLong:
		step1 := e.b.NewTemp()
		e.b.EmitConvert(step1, "w", "stosi", val)
		e.b.EmitConvert(dest, "l", "extsw", step1)
	default:
		e.b.EmitConvert(dest, destType, op, val)
	}
	return dest
}

func (e *Emitter) emitUnary(n *ast.Unary) string {
	switch n.Op {
	case ast.UnaryPlus:
		return e.EmitExpr(n.Operand)
	case ast.UnaryNeg:
		t := e.exprType(n.Operand)
		val := e.EmitExpr(n.Operand)
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, string(e.qt.QBEType(t)), "sub", zeroLiteral(t), val)
		return dest
	case ast.UnaryNot:
		t := e.exprType(n.Operand)
		val := e.EmitExpr(n.Operand)
		if t != nil && (t.Prim == sema.PrimSingle || t.Prim == sema.PrimDouble) {
			val = e.convert(val, t, intType)
		}
		dest := e.b.NewTemp()
		e.b.EmitBinary(dest, "w", "xor", val, "-1")
		return dest
	}
	return e.errorPlaceholder("unhandled unary operator", nil)
}

func zeroLiteral(t *sema.Type) string {
	if t != nil && t.Category == sema.CatPrimitive && (t.Prim == sema.PrimSingle || t.Prim == sema.PrimDouble) {
		suffix := byte('d')
		if t.Prim == sema.PrimSingle {
			suffix = 's'
		}
		return formatFloatLit(0, suffix)
	}
	return "0"
}

// --- Array access ---

func serializeIndex(node ast.Node) (string, bool) {
	switch n := node.(type) {
	case *ast.Variable:
		return "var:" + n.Name, true
	case *ast.NumberLit:
		if n.IsInt {
			return "lit:" + strconv.FormatInt(n.IntVal, 10), true
		}
	}
	return "", false
}

// arrayElementAddress materialises the element address of n, consulting
// the per-statement-group cache for simple (variable/literal) indices.
// Complex index expressions are never cached — re-evaluation is the safe
// default (spec.md §9 last design note).
func (e *Emitter) arrayElementAddress(n *ast.ArrayAccess) string {
	var key string
	cacheable := len(n.Indices) == 1
	if cacheable {
		s, ok := serializeIndex(n.Indices[0])
		if !ok {
			cacheable = false
		} else {
			key = n.ArrayName + "|" + s
		}
	}
	if cacheable {
		if entry, ok := e.elemCache[key]; ok {
			return entry.addr
		}
	}

	descAddr := mangle.ArrayDescriptorName(n.ArrayName, e.isGlobalArray(n.ArrayName))
	descTemp := e.b.NewTemp()
	e.b.EmitLoad(descTemp, "l", "loadl", descAddr)

	idxBuf := e.sharedIndexBuffer()
	for i, idxNode := range n.Indices {
		idxVal := e.emitCoerced(idxNode, intType)
		slotAddr := e.b.NewTemp()
		e.b.EmitBinary(slotAddr, "l", "add", idxBuf, strconv.Itoa(i*4))
		e.b.EmitStore("storew", idxVal, slotAddr)
	}

	addr := e.b.NewTemp()
	e.b.EmitCall(addr, "l", "array_get_address", []ilbuilder.Arg{{Type: "l", Value: descTemp}, {Type: "l", Value: idxBuf}})

	if cacheable {
		e.elemCache[key] = elemCacheEntry{addr: addr}
	}
	return addr
}

func (e *Emitter) isGlobalArray(name string) bool {
	if a, ok := e.table.Arrays[name]; ok {
		return a.IsGlobal
	}
	return true
}

// --- Member access ---

func (e *Emitter) emitMemberAccessLoad(n *ast.MemberAccess) string {
	addr, finalType, isFinalUDT := e.memberChainAddress(n)
	if isFinalUDT {
		return addr
	}
	dest := e.b.NewTemp()
	e.b.EmitLoad(dest, string(e.qt.QBEType(finalType)), loadOpFor(finalType), addr)
	return dest
}

// memberChainAddress resolves the address of the final field in the chain
// and reports whether that field is itself a UDT (in which case the
// address is the result, per spec.md §4.5 "UDT field access").
func (e *Emitter) memberChainAddress(n *ast.MemberAccess) (string, *sema.Type, bool) {
	baseType := e.exprType(n.Base)
	baseAddr := e.EmitExpr(n.Base)

	if baseType != nil && baseType.IsClass() {
		return e.classFieldChainAddress(baseAddr, baseType, n)
	}
	return e.udtFieldChainAddress(baseAddr, baseType, n.Fields)
}

// classFieldChainAddress walks a class field chain, null-checking every
// intermediate class pointer except when the base is ME (always valid).
func (e *Emitter) classFieldChainAddress(baseAddr string, baseType *sema.Type, n *ast.MemberAccess) (string, *sema.Type, bool) {
	isMe := false
	if _, ok := n.Base.(*ast.MeExpr); ok {
		isMe = true
	}
	curAddr, curType := baseAddr, baseType
	for i, field := range n.Fields {
		if !isMe {
			e.emitNullCheck(curAddr, "class_null_field_error", field)
		}
		cls := e.table.Class(curType.ClassId)
		offset, fieldType, ok := classFieldOffset(cls, field)
		if !ok {
			return e.errorPlaceholder(fmt.Sprintf("unknown class field %q", field), nil), longType, false
		}
		fieldAddr := e.b.NewTemp()
		e.b.EmitBinary(fieldAddr, "l", "add", curAddr, strconv.Itoa(offset))
		if i == len(n.Fields)-1 {
			return fieldAddr, fieldType, fieldType.IsUDT()
		}
		if fieldType.IsClass() {
			loaded := e.b.NewTemp()
			e.b.EmitLoad(loaded, "l", "loadl", fieldAddr)
			curAddr, curType = loaded, fieldType
			isMe = false
			continue
		}
		curAddr, curType = fieldAddr, fieldType
	}
	return curAddr, curType, curType.IsUDT()
}

func classFieldOffset(cls *sema.Class, name string) (int, *sema.Type, bool) {
	if cls == nil {
		return 0, nil, false
	}
	for i, f := range cls.Fields {
		if f.Name == name {
			return cls.FieldOffsets[i], f.Type, true
		}
	}
	if cls.ParentId >= 0 {
		// Caller passes the resolved Class already including inherited
		// layout in Fields/FieldOffsets, so this path only triggers for
		// malformed tables.
	}
	return 0, nil, false
}

// udtFieldChainAddress walks a stack-allocated-UDT field chain (spec.md
// §4.5 "UDT field access"). When an intermediate member is a parameter
// UDT, the hidden pointer is dereferenced exactly once at the top — see
// spec.md §9's open question about double-indirection.
func (e *Emitter) udtFieldChainAddress(baseAddr string, baseType *sema.Type, fields []string) (string, *sema.Type, bool) {
	curAddr, curType := baseAddr, baseType
	for i, field := range fields {
		if curType == nil || !curType.IsUDT() {
			return e.errorPlaceholder("member access on non-UDT base", nil), longType, false
		}
		u := e.table.UDT(curType.UDTId)
		offset, fieldType, ok := e.qt.FieldOffset(u, field)
		if !ok {
			return e.errorPlaceholder(fmt.Sprintf("unknown UDT field %q", field), nil), longType, false
		}
		fieldAddr := e.b.NewTemp()
		e.b.EmitBinary(fieldAddr, "l", "add", curAddr, strconv.Itoa(offset))
		curAddr, curType = fieldAddr, fieldType
		if i == len(fields)-1 {
			return curAddr, curType, curType.IsUDT()
		}
	}
	return curAddr, curType, curType.IsUDT()
}

// emitNullCheck halts with a diagnostic if base is null (spec.md §4.5,
// §7 "Runtime null dereference").
func (e *Emitter) emitNullCheck(base string, errFunc string, name string) {
	cmp := e.b.NewTemp()
	e.b.EmitCompare(cmp, "eq", "l", base, "0")
	okLabel := e.fn.NewLabel("nullok")
	failLabel := e.fn.NewLabel("nullfail")
	e.b.EmitBranch(cmp, failLabel, okLabel)
	e.b.EmitLabelDef(failLabel)
	label := e.b.RegisterString(name)
	e.b.EmitCall("", "", errFunc, []ilbuilder.Arg{{Type: "l", Value: "0"}, {Type: "l", Value: label}})
	e.b.EmitHalt()
	e.b.EmitLabelDef(okLabel)
}

// --- IIF ---

func (e *Emitter) emitIIF(n *ast.IIF) string {
	cond := e.EmitExpr(n.Cond)
	condType := e.exprType(n.Cond)
	if condType != nil && (condType.Prim == sema.PrimSingle || condType.Prim == sema.PrimDouble) {
		cond = e.convert(cond, condType, intType)
	}
	storage := string(e.qt.QBEType(n.ResultType))
	thenLabel := e.fn.NewLabel("iif.then")
	elseLabel := e.fn.NewLabel("iif.else")
	joinLabel := e.fn.NewLabel("iif.join")
	result := e.b.NewTemp()

	e.b.EmitBranch(cond, thenLabel, elseLabel)
	e.b.EmitLabelDef(thenLabel)
	thenVal := e.emitCoerced(n.Then, n.ResultType)
	e.b.EmitCopy(result, storage, thenVal)
	e.b.EmitJump(joinLabel)
	e.b.EmitLabelDef(elseLabel)
	elseVal := e.emitCoerced(n.Else, n.ResultType)
	e.b.EmitCopy(result, storage, elseVal)
	e.b.EmitJump(joinLabel)
	e.b.EmitLabelDef(joinLabel)
	return result
}

// --- Calls ---

func (e *Emitter) emitCall(n *ast.Call) string {
	fn := e.lookupFunction(n.Name)
	args := make([]ilbuilder.Arg, 0, len(n.Args))
	for i, a := range n.Args {
		var pt *sema.Type
		if fn != nil && i < len(fn.Params) {
			pt = fn.Params[i].Type
		} else {
			pt = e.exprType(a)
		}
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: e.emitCoerced(a, pt)})
	}
	sym := mangle.Mangle(n.Name, true)[1:]
	if fn == nil || fn.ReturnType == nil {
		e.b.EmitCall("", "", sym, args)
		return "0"
	}
	dest := e.b.NewTemp()
	e.b.EmitCall(dest, string(e.qt.QBEType(fn.ReturnType)), sym, args)
	return dest
}

func (e *Emitter) lookupFunction(name string) *sema.Function {
	for _, f := range e.table.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// emitMethodCall dispatches virtual, runtime-object, and (elsewhere) SUPER
// call paths (spec.md §4.5 "Method call").
func (e *Emitter) emitMethodCall(n *ast.MethodCall) string {
	if n.BaseType != nil && n.BaseType.Category == sema.CatRuntimeObject {
		return e.emitRuntimeObjectCall(n)
	}
	return e.emitVirtualCall(n)
}

func (e *Emitter) emitVirtualCall(n *ast.MethodCall) string {
	obj := e.EmitExpr(n.Base)
	method, cls, ok := e.table.MethodSlot(n.BaseType.ClassId, n.Method)
	if !ok {
		return e.errorPlaceholder(fmt.Sprintf("unknown method %q on class %q", n.Method, classNameOrUnknown(cls)), nil)
	}

	vtable := e.b.NewTemp()
	e.b.EmitLoad(vtable, "l", "loadl", obj)

	slotAddr := e.b.NewTemp()
	e.b.EmitBinary(slotAddr, "l", "add", vtable, strconv.Itoa(32+8*method.Slot))
	fnPtr := e.b.NewTemp()
	e.b.EmitLoad(fnPtr, "l", "loadl", slotAddr)

	e.emitNullCheck(fnPtr, "class_null_method_error", n.Method)

	args := []ilbuilder.Arg{{Type: "l", Value: obj}}
	for i, a := range n.Args {
		var pt *sema.Type
		if i < len(method.ParamTypes) {
			pt = method.ParamTypes[i]
		} else {
			pt = e.exprType(a)
		}
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: e.emitCoerced(a, pt)})
	}
	if method.ReturnType == nil {
		e.b.EmitIndirectCall("", "", fnPtr, args)
		return "0"
	}
	dest := e.b.NewTemp()
	e.b.EmitIndirectCall(dest, string(e.qt.QBEType(method.ReturnType)), fnPtr, args)
	return dest
}

func classNameOrUnknown(c *sema.Class) string {
	if c == nil {
		return "?"
	}
	return c.Name
}

func (e *Emitter) emitRuntimeObjectCall(n *ast.MethodCall) string {
	obj, ok := e.table.Objects[n.BaseType.ObjectKind]
	if !ok {
		return e.errorPlaceholder(fmt.Sprintf("unknown runtime object type %q", n.BaseType.ObjectKind), nil)
	}
	m, ok := obj.Methods[n.Method]
	if !ok {
		return e.errorPlaceholder(fmt.Sprintf("unknown runtime method %q on %q", n.Method, obj.Name), nil)
	}
	base := e.EmitExpr(n.Base)
	args := []ilbuilder.Arg{{Type: "l", Value: base}}
	for i, a := range n.Args {
		var pt *sema.Type
		if i < len(m.ParamTypes) {
			pt = m.ParamTypes[i]
		} else {
			pt = e.exprType(a)
		}
		val := e.emitCoerced(a, pt)
		if pt.IsString() {
			unwrapped := e.b.NewTemp()
			e.b.EmitCall(unwrapped, "l", "string_to_utf8", []ilbuilder.Arg{{Type: "l", Value: val}})
			val = unwrapped
		}
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: val})
	}
	if m.ReturnType == nil {
		e.b.EmitCall("", "", m.FuncName, args)
		return "0"
	}
	dest := e.b.NewTemp()
	e.b.EmitCall(dest, string(e.qt.QBEType(m.ReturnType)), m.FuncName, args)
	return dest
}

func (e *Emitter) emitSuperCall(n *ast.SuperCall) string {
	method, _, ok := e.table.MethodSlot(n.ParentClassId, n.Method)
	if !ok {
		return e.errorPlaceholder(fmt.Sprintf("unknown SUPER method %q", n.Method), nil)
	}
	args := []ilbuilder.Arg{{Type: "l", Value: "%me"}}
	for i, a := range n.Args {
		var pt *sema.Type
		if i < len(method.ParamTypes) {
			pt = method.ParamTypes[i]
		} else {
			pt = e.exprType(a)
		}
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: e.emitCoerced(a, pt)})
	}
	if method.ReturnType == nil {
		e.b.EmitCall("", "", method.MangledSym, args)
		return "0"
	}
	dest := e.b.NewTemp()
	e.b.EmitCall(dest, string(e.qt.QBEType(method.ReturnType)), method.MangledSym, args)
	return dest
}

func (e *Emitter) emitNew(n *ast.NewExpr) string {
	cls := e.table.Class(n.ClassId)
	if cls == nil {
		return e.errorPlaceholder(fmt.Sprintf("unknown class id %d", n.ClassId), nil)
	}
	obj := e.facade.ClassObjectNew(e.b, cls.ObjectSize, cls.VtableSymbol, cls.ClassId)
	args := []ilbuilder.Arg{{Type: "l", Value: obj}}
	for i, a := range n.Args {
		var pt *sema.Type
		if i < len(cls.CtorParamTypes) {
			pt = cls.CtorParamTypes[i]
		} else {
			pt = e.exprType(a)
		}
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: e.emitCoerced(a, pt)})
	}
	e.b.EmitCall("", "", cls.ConstructorSym, args)
	return obj
}

func (e *Emitter) emitIs(n *ast.IsExpr) string {
	val := e.EmitExpr(n.Expr)
	if n.Target == ast.IsNothing {
		dest := e.b.NewTemp()
		e.b.EmitCompare(dest, "eq", "l", val, "0")
		return dest
	}
	dest := e.b.NewTemp()
	e.b.EmitCall(dest, "w", "class_is_instance", []ilbuilder.Arg{{Type: "l", Value: val}, {Type: "w", Value: strconv.Itoa(n.ClassId)}})
	return dest
}

// --- Builtins ---

func (e *Emitter) emitBuiltin(n *ast.BuiltinCall) string {
	argVals := make([]string, len(n.Args))
	argTypes := make([]*sema.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = e.exprType(a)
		argVals[i] = e.EmitExpr(a)
	}
	call := func(name, ret string, args ...ilbuilder.Arg) string {
		if ret == "" {
			e.b.EmitCall("", "", name, args)
			return "0"
		}
		dest := e.b.NewTemp()
		e.b.EmitCall(dest, ret, name, args)
		return dest
	}
	arg := func(i int) ilbuilder.Arg {
		return ilbuilder.Arg{Type: string(e.qt.QBEType(argTypes[i])), Value: argVals[i]}
	}

	switch n.Name {
	case ast.BuiltinAbs:
		switch string(e.qt.QBEType(argTypes[0])) {
		case "w":
			return call("basic_abs_int", "w", arg(0))
		case "s":
			return call("basic_abs_float", "s", arg(0))
		default:
			return call("basic_abs_double", "d", arg(0))
		}
	case ast.BuiltinSgn:
		return call("basic_sgn", "w", ilbuilder.Arg{Type: "l", Value: argVals[0]})
	case ast.BuiltinLen:
		return call("string_length", "w", arg(0))
	case ast.BuiltinMid:
		return call("basic_mid", "l", arg(0), arg(1), arg(2))
	case ast.BuiltinLeft:
		return call("basic_left", "l", arg(0), arg(1))
	case ast.BuiltinRight:
		return call("basic_right", "l", arg(0), arg(1))
	case ast.BuiltinChr:
		return call("basic_chr", "l", arg(0))
	case ast.BuiltinAsc:
		return call("basic_asc", "w", arg(0))
	case ast.BuiltinStr:
		if argTypes[0].Prim == sema.PrimDouble || argTypes[0].Prim == sema.PrimSingle {
			return call("string_from_double", "l", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
		}
		return call("string_from_int", "l", ilbuilder.Arg{Type: "l", Value: e.convert(argVals[0], argTypes[0], longType)})
	case ast.BuiltinVal:
		return call("basic_val", "d", arg(0))
	case ast.BuiltinUCase:
		return call("string_upper", "l", arg(0))
	case ast.BuiltinLCase:
		return call("string_lower", "l", arg(0))
	case ast.BuiltinSin:
		return call("basic_sin", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinCos:
		return call("basic_cos", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinTan:
		return call("basic_tan", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinLog:
		return call("basic_log", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinExp:
		return call("basic_exp", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinSqrt, ast.BuiltinSqr:
		return call("basic_sqrt", "d", ilbuilder.Arg{Type: "d", Value: e.convert(argVals[0], argTypes[0], doubleType)})
	case ast.BuiltinInt, ast.BuiltinFix:
		return e.convert(argVals[0], argTypes[0], longType)
	case ast.BuiltinRnd:
		return call("basic_rnd", "d")
	case ast.BuiltinStringSlice:
		return call("string_slice", "l", arg(0), arg(1), arg(2))
	}
	return e.errorPlaceholder("unhandled builtin", nil)
}

// --- Plugin calls ---

// emitPluginCall allocates a runtime context, marshals parameters one by
// one, computes the plugin function pointer as a numeric literal, emits an
// indirect call, checks the context for errors and terminates on failure,
// extracts the return value by type, and destroys the context (spec.md
// §4.5 "Plugin calls").
func (e *Emitter) emitPluginCall(n *ast.PluginCall) string {
	ctx := e.b.NewTemp()
	e.b.EmitCall(ctx, "l", "fb_context_new", nil)

	args := []ilbuilder.Arg{{Type: "l", Value: ctx}}
	for i, a := range n.Args {
		pt := n.ParamTypes[i]
		args = append(args, ilbuilder.Arg{Type: string(e.qt.QBEType(pt)), Value: e.emitCoerced(a, pt)})
	}

	fnPtr := strconv.FormatInt(n.PluginAddr, 10)
	var dest string
	if n.ReturnType == nil {
		e.b.EmitIndirectCall("", "", fnPtr, args)
	} else {
		dest = e.b.NewTemp()
		e.b.EmitIndirectCall(dest, string(e.qt.QBEType(n.ReturnType)), fnPtr, args)
	}

	hasErr := e.b.NewTemp()
	e.b.EmitCall(hasErr, "w", "fb_context_has_error", []ilbuilder.Arg{{Type: "l", Value: ctx}})
	okLabel := e.fn.NewLabel("plugin.ok")
	failLabel := e.fn.NewLabel("plugin.fail")
	e.b.EmitBranch(hasErr, failLabel, okLabel)
	e.b.EmitLabelDef(failLabel)
	msg := e.b.NewTemp()
	e.b.EmitCall(msg, "l", "fb_context_get_error", []ilbuilder.Arg{{Type: "l", Value: ctx}})
	e.b.EmitCall("", "", "basic_print_string_desc", []ilbuilder.Arg{{Type: "l", Value: msg}})
	e.b.EmitCall("", "", "basic_end", []ilbuilder.Arg{{Type: "w", Value: "1"}})
	e.b.EmitLabelDef(okLabel)
	e.b.EmitCall("", "", "fb_context_destroy", []ilbuilder.Arg{{Type: "l", Value: ctx}})
	if dest == "" {
		return "0"
	}
	return dest
}
