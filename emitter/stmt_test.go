package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

func TestEmitLetScalarStringIsSelfAssignmentSafe(t *testing.T) {
	table := sema.NewTable()
	table.Variables["S"] = &sema.Variable{Name: "S", Type: fixture.StringT, Scope: sema.ScopeGlobal}
	e := newTestEmitter(t, table)

	let := &ast.Let{
		Target: ast.LValue{Kind: ast.LValueScalar, VarName: "S", Type: fixture.StringT},
		Value:  &ast.Variable{Name: "S", Type: fixture.StringT},
	}
	e.emitLet(let)
	out := e.Output()

	retainIdx := indexOf(out, "string_retain")
	loadIdx := lastLoadBeforeStore(out)
	releaseIdx := indexOf(out, "string_release")

	require.GreaterOrEqual(t, retainIdx, 0)
	require.GreaterOrEqual(t, releaseIdx, 0)
	require.Less(t, retainIdx, releaseIdx)
	require.GreaterOrEqual(t, loadIdx, 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func lastLoadBeforeStore(out string) int {
	storeIdx := indexOf(out, "storel")
	last := -1
	for i := 0; i+len("loadl") <= storeIdx; i++ {
		if out[i:i+len("loadl")] == "loadl" {
			last = i
		}
	}
	return last
}

func TestEmitDimArrayPacksBoundsAndCallsArrayNew(t *testing.T) {
	table := sema.NewTable()
	table.Arrays["A"] = &sema.ArrayDecl{Name: "A", ElemType: fixture.IntT, Rank: 1, IsGlobal: true}
	e := newTestEmitter(t, table)

	dim := &ast.Dim{
		DimKind:  ast.DimArray,
		Name:     "A",
		ElemType: fixture.IntT,
		Bounds: []ast.DimBound{
			{Lower: &ast.NumberLit{IsInt: true, IntVal: 0, Expected: fixture.IntT}, Upper: &ast.NumberLit{IsInt: true, IntVal: 9, Expected: fixture.IntT}},
		},
	}
	e.emitDim(dim)
	out := e.Output()

	require.Contains(t, out, "array_new(")
	require.NotContains(t, out, "array_new_custom")
	require.Contains(t, out, "storew")
}

func TestEmitDimArrayOfUDTCallsArrayNewCustom(t *testing.T) {
	table := sema.NewTable()
	udt := &sema.UDT{Name: "POINT", Fields: []sema.Field{
		{Name: "X", Type: fixture.IntT}, {Name: "Y", Type: fixture.IntT},
	}}
	table.UDTs = append(table.UDTs, udt)
	udtType := &sema.Type{Category: sema.CatUDT, UDTId: 0}
	table.Arrays["PTS"] = &sema.ArrayDecl{Name: "PTS", ElemType: udtType, Rank: 1, IsGlobal: true}
	e := newTestEmitter(t, table)

	dim := &ast.Dim{
		DimKind:  ast.DimArray,
		Name:     "PTS",
		ElemType: udtType,
		Bounds: []ast.DimBound{
			{Lower: &ast.NumberLit{IsInt: true, IntVal: 0, Expected: fixture.IntT}, Upper: &ast.NumberLit{IsInt: true, IntVal: 9, Expected: fixture.IntT}},
		},
	}
	e.emitDim(dim)
	out := e.Output()

	require.Contains(t, out, "array_new_custom(")
}

func TestEmitReadBoundsChecksAgainstDataEnd(t *testing.T) {
	table := sema.NewTable()
	table.Variables["N"] = &sema.Variable{Name: "N", Type: fixture.IntT, Scope: sema.ScopeGlobal}
	e := newTestEmitter(t, table)

	read := &ast.Read{Targets: []ast.Variable{{Name: "N", Type: fixture.IntT}}}
	e.emitRead(read)
	out := e.Output()

	require.Contains(t, out, "fb_error_out_of_data")
	require.Contains(t, out, "basic_end")
	require.Contains(t, out, "add")
	require.Contains(t, out, ", 8")
}

func TestEmitGosubAndReturnRoundTripThroughStack(t *testing.T) {
	table := sema.NewTable()
	e := newTestEmitter(t, table)

	e.emitGosub(&ast.Gosub{TargetLabel: "SUB1"})
	e.emitGosubReturn()
	out := e.Output()

	require.Contains(t, out, "jmp @SUB1")
	require.Contains(t, out, "jmpind")
}

func TestEmitLetArrayElemUDTUsesNeonArithAndCopyWhenEligible(t *testing.T) {
	table, forLoop := fixture.VectorAddProgram()
	e := newTestEmitter(t, table)
	let := forLoop.Body.Stmts[0].(*ast.Let)

	e.emitLetArrayElemUDT(let)
	out := e.Output()

	require.Contains(t, out, "neonldr ")
	require.Contains(t, out, "neonldr2 ")
	require.Contains(t, out, "neonadd 0")
	require.Contains(t, out, "neonstr ")
}
