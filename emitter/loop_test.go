package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

func TestBlockAllocatesDetectsObjectDim(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Node{&ast.Dim{DimKind: ast.DimObjectScalar, Name: "H", ObjectType: "HASHMAP"}}}
	require.True(t, blockAllocates(b))
}

func TestBlockAllocatesFalseForPlainScalarAssignment(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Node{
		&ast.Let{Target: ast.LValue{Kind: ast.LValueScalar, VarName: "N", Type: fixture.IntT}, Value: &ast.NumberLit{IsInt: true, IntVal: 1}},
	}}
	require.False(t, blockAllocates(b))
}

func TestBlockAllocatesTrueForAnyDim(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Node{&ast.Dim{DimKind: ast.DimArray, Name: "A", ElemType: fixture.IntT}}}
	require.True(t, blockAllocates(b))
}

func TestBlockAllocatesTrueForLetToStringVariable(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Node{
		&ast.Let{Target: ast.LValue{Kind: ast.LValueScalar, VarName: "S", Type: fixture.StringT}, Value: &ast.StringLit{Value: "hi"}},
	}}
	require.True(t, blockAllocates(b))
}

func TestBlockAllocatesTrueForPrint(t *testing.T) {
	b := &ast.Block{Stmts: []ast.Node{&ast.Print{Items: []ast.PrintItem{{Expr: &ast.NumberLit{IsInt: true, IntVal: 1}}}}}}
	require.True(t, blockAllocates(b))
}

func TestEmitMethodForDescendingStepUsesSGE(t *testing.T) {
	table := sema.NewTable()
	table.Variables["N"] = &sema.Variable{Name: "N", Type: fixture.IntT, Scope: sema.ScopeGlobal}
	e := newTestEmitter(t, table)

	n := &ast.For{
		VarName: "N", VarType: fixture.IntT,
		Start: &ast.NumberLit{IsInt: true, IntVal: 5, Expected: fixture.IntT},
		Limit: &ast.NumberLit{IsInt: true, IntVal: 1, Expected: fixture.IntT},
		Step:  &ast.NumberLit{IsInt: true, IntVal: -1, Expected: fixture.IntT},
		Body:  &ast.Block{},
	}
	e.emitMethodFor(n)
	out := e.Output()
	require.Contains(t, out, "csgew")
}

func TestEmitMethodForSAMMWrapsAllocatingBody(t *testing.T) {
	table := sema.NewTable()
	table.Variables["N"] = &sema.Variable{Name: "N", Type: fixture.IntT, Scope: sema.ScopeGlobal}
	e, err := New(table, Config{SAMM: true})
	require.NoError(t, err)
	e.ResetFunction("TEST", false, -1, nil)
	e.b.EmitFunctionHeader("function w $TEST() {")
	e.b.EmitLabelDef("@start")

	n := &ast.For{
		VarName: "N", VarType: fixture.IntT,
		Start: &ast.NumberLit{IsInt: true, IntVal: 0, Expected: fixture.IntT},
		Limit: &ast.NumberLit{IsInt: true, IntVal: 9, Expected: fixture.IntT},
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.Dim{DimKind: ast.DimObjectScalar, Name: "H", ObjectType: "HASHMAP"},
		}},
	}
	e.emitMethodFor(n)
	out := e.Output()
	require.Contains(t, out, "samm_enter_scope")
	require.Contains(t, out, "samm_exit_scope")
}

func TestEmitForEachHashmapLooksUpEachValue(t *testing.T) {
	table := sema.NewTable()
	table.Variables["H"] = &sema.Variable{Name: "H", Type: &sema.Type{Category: sema.CatRuntimeObject, ObjectKind: "HASHMAP"}, Scope: sema.ScopeGlobal}
	table.Variables["K"] = &sema.Variable{Name: "K", Type: fixture.StringT, Scope: sema.ScopeGlobal}
	table.Variables["V"] = &sema.Variable{Name: "V", Type: fixture.IntT, Scope: sema.ScopeGlobal}
	e := newTestEmitter(t, table)

	n := &ast.ForEach{
		Source:   ast.ForEachHashmap,
		Container: &ast.Variable{Name: "H", Type: &sema.Type{Category: sema.CatRuntimeObject, ObjectKind: "HASHMAP"}},
		KeyVar:   "K",
		ValueVar: "V",
		ElemType: fixture.IntT,
		Body:     &ast.Block{},
	}
	e.emitForEachHashmap(n)
	out := e.Output()
	require.Contains(t, out, "hashmap_keys")
	require.Contains(t, out, "hashmap_size")
	require.Contains(t, out, "hashmap_lookup")
	require.Contains(t, out, "string_new_utf8")
	require.Contains(t, out, "free")
}
