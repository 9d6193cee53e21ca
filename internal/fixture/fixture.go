// Package fixture builds small, hand-authored AST/symbol-table/CFG graphs
// used by the emitter's own tests and by the CLI's demo mode. There is no
// parser or semantic analyzer in this module — fixtures stand in for their
// output, the way tinyrange's own compiler tests hand-build IR graphs
// directly rather than routing every test through the full frontend.
package fixture

import (
	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/cfgir"
	"github.com/fasterbasic/qbemit/sema"
)

var (
	IntT    = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimInteger}
	LongT   = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimLong}
	DoubleT = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimDouble}
	StringT = &sema.Type{Category: sema.CatPrimitive, Prim: sema.PrimString}
)

// HelloWorld builds `PRINT "HELLO"` as a one-block top-level CFG, the
// smallest possible complete program.
func HelloWorld() (*sema.Table, *cfgir.Graph) {
	table := sema.NewTable()
	block := cfgir.Block{
		Label: 0,
		Stmts: []ast.Node{
			&ast.Print{Items: []ast.PrintItem{{Expr: &ast.StringLit{Value: "HELLO"}, Type: StringT}}},
			&ast.End{},
		},
	}
	g := &cfgir.Graph{Blocks: []cfgir.Block{block}, EntryIdx: 0, ExitIdx: 0}
	return table, g
}

// CountdownLoop builds a top-level program that sets the global integer N
// to 5, then counts it down to 1 printing each value, driven by an explicit
// four-block CFG (init/cond/body/done) rather than method-mode's self-contained
// FOR — exercising the CFG Emitter's CondFor path.
func CountdownLoop() (*sema.Table, *cfgir.Graph) {
	table := sema.NewTable()
	table.Variables["N"] = &sema.Variable{Name: "N", Type: IntT, Scope: sema.ScopeGlobal}

	forNode := &ast.For{
		VarName: "N",
		VarType: IntT,
		Start:   &ast.NumberLit{IsInt: true, IntVal: 5, Expected: IntT},
		Limit:   &ast.NumberLit{IsInt: true, IntVal: 1, Expected: IntT},
		Step:    &ast.NumberLit{IsInt: true, IntVal: -1, Expected: IntT},
	}

	init := cfgir.Block{
		Label: 0,
		Stmts: []ast.Node{
			&ast.Let{
				Target: ast.LValue{Kind: ast.LValueScalar, VarName: "N", Type: IntT},
				Value:  forNode.Start,
			},
		},
		Edges: []cfgir.Edge{{Kind: cfgir.EdgeAlways, To: 1}},
	}
	cond := cfgir.Block{
		Label:     1,
		Cond:      cfgir.CondFor,
		CondOwner: forNode,
		Edges:     []cfgir.Edge{{Kind: cfgir.EdgeTrue, To: 2}, {Kind: cfgir.EdgeFalse, To: 3}},
	}
	body := cfgir.Block{
		Label: 2,
		Stmts: []ast.Node{
			&ast.Print{Items: []ast.PrintItem{{Expr: &ast.Variable{Name: "N", Type: IntT}, Type: IntT}}},
			&ast.Let{
				Target: ast.LValue{Kind: ast.LValueScalar, VarName: "N", Type: IntT},
				Value: &ast.Binary{
					Op:    ast.OpAdd,
					Left:  &ast.Variable{Name: "N", Type: IntT},
					Right: &ast.NumberLit{IsInt: true, IntVal: -1, Expected: IntT},
				},
			},
		},
		Edges: []cfgir.Edge{{Kind: cfgir.EdgeAlways, To: 1}},
	}
	done := cfgir.Block{Label: 3, Stmts: []ast.Node{&ast.End{}}}

	g := &cfgir.Graph{Blocks: []cfgir.Block{init, cond, body, done}, EntryIdx: 0, ExitIdx: 3}
	return table, g
}

// point2DUDT builds POINT2D, a 2-field, 8-byte-total integer UDT. No fixture
// in this package uses it.
func point2DUDT() *sema.UDT {
	return &sema.UDT{
		Name: "POINT2D",
		Fields: []sema.Field{
			{Name: "X", Type: IntT},
			{Name: "Y", Type: IntT},
		},
	}
}

// Vec4 is a 4-field, 16-byte full-Q integer UDT — a SIMD-eligible shape.
func vec4UDT() *sema.UDT {
	return &sema.UDT{
		Name: "VEC4",
		Fields: []sema.Field{
			{Name: "A", Type: IntT},
			{Name: "B", Type: IntT},
			{Name: "C", Type: IntT},
			{Name: "D", Type: IntT},
		},
	}
}

// VectorAddProgram builds two VEC4 arrays and a FOR loop whose body is
// exactly `result(i) = result(i) + other(i)`, the syntactic shape the SIMD
// Vectoriser pattern-matches (spec.md §4.8).
func VectorAddProgram() (*sema.Table, *ast.For) {
	table := sema.NewTable()
	table.UDTs = append(table.UDTs, vec4UDT())
	vec4Type := &sema.Type{Category: sema.CatUDT, UDTId: 0}

	table.Arrays["RESULT"] = &sema.ArrayDecl{Name: "RESULT", ElemType: vec4Type, Rank: 1, IsGlobal: true}
	table.Arrays["OTHER"] = &sema.ArrayDecl{Name: "OTHER", ElemType: vec4Type, Rank: 1, IsGlobal: true}
	table.Variables["I"] = &sema.Variable{Name: "I", Type: IntT, Scope: sema.ScopeGlobal}

	idxVar := &ast.Variable{Name: "I", Type: IntT}
	forLoop := &ast.For{
		VarName: "I",
		VarType: IntT,
		Start:   &ast.NumberLit{IsInt: true, IntVal: 0, Expected: IntT},
		Limit:   &ast.NumberLit{IsInt: true, IntVal: 99, Expected: IntT},
		Body: &ast.Block{
			Stmts: []ast.Node{
				&ast.Let{
					Target: ast.LValue{
						Kind: ast.LValueArrayElemUDT, ArrayName: "RESULT", Type: vec4Type,
						Indices: []ast.Node{idxVar},
					},
					Value: &ast.Binary{
						Op:    ast.OpAdd,
						Left:  &ast.ArrayAccess{ArrayName: "RESULT", ElemType: vec4Type, Indices: []ast.Node{idxVar}},
						Right: &ast.ArrayAccess{ArrayName: "OTHER", ElemType: vec4Type, Indices: []ast.Node{idxVar}},
					},
				},
			},
		},
	}
	return table, forLoop
}

// CounterClass builds a class with one field (COUNT) and one virtual method
// (NEXT, incrementing and returning COUNT) with a single-level vtable, used by
// the virtual-dispatch emitter test.
func CounterClass() *sema.Table {
	table := sema.NewTable()
	cls := &sema.Class{
		Name:     "COUNTER",
		ParentId: -1,
		Fields:   []sema.Field{{Name: "COUNT", Type: IntT}},
		FieldOffsets: []int{8},
		Methods: []sema.Method{
			{Name: "NEXT", Slot: 0, ReturnType: IntT, IsVirtual: true, MangledSym: "Counter.Next"},
		},
		ClassId:        0,
		ObjectSize:     16, // 8-byte vtable pointer + 8-byte field region
		VtableSymbol:   "Counter.vtable",
		ConstructorSym: "Counter.ctor",
		DestructorSym:  "Counter.dtor",
	}
	table.Classes = append(table.Classes, cls)
	return table
}

// CounterNextBody is COUNTER.NEXT's method-mode body: `COUNT = COUNT + 1 :
// RETURN COUNT`.
func CounterNextBody() *ast.Block {
	me := &ast.MeExpr{}
	countField := &ast.MemberAccess{Base: me, Fields: []string{"COUNT"}}
	return &ast.Block{
		Stmts: []ast.Node{
			&ast.Let{
				Target: ast.LValue{Kind: ast.LValueClassMemberChain, Base: me, Fields: []string{"COUNT"}, Type: IntT},
				Value:  &ast.Binary{Op: ast.OpAdd, Left: countField, Right: &ast.NumberLit{IsInt: true, IntVal: 1, Expected: IntT}},
			},
			&ast.Return{Context: ast.ReturnMethodValue, Value: countField, ReturnType: IntT},
		},
	}
}
