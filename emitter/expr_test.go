package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

func newTestEmitter(t *testing.T, table *sema.Table) *Emitter {
	t.Helper()
	e, err := New(table, Config{NeonCopy: true, NeonArith: true, NeonLoop: true})
	require.NoError(t, err)
	e.ResetFunction("TEST", false, -1, nil)
	e.b.EmitFunctionHeader("function w $TEST() {")
	e.b.EmitLabelDef("@start")
	return e
}

func TestEmitBinaryIntAdd(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	n := &ast.Binary{
		Op:    ast.OpAdd,
		Left:  &ast.NumberLit{IsInt: true, IntVal: 1, Expected: fixture.IntT},
		Right: &ast.NumberLit{IsInt: true, IntVal: 2, Expected: fixture.IntT},
	}
	val := e.EmitExpr(n)
	out := e.Output()
	require.Contains(t, out, "=w add")
	require.NotEmpty(t, val)
}

func TestEmitBinaryStringConcatUsesRuntimeCall(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	n := &ast.Binary{
		Op:    ast.OpConcat,
		Left:  &ast.StringLit{Value: "A"},
		Right: &ast.StringLit{Value: "B"},
	}
	e.EmitExpr(n)
	out := e.Output()
	require.Contains(t, out, "string_concat")
}

func TestEmitStringLitRegistersPoolEntryOnce(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	lit := &ast.StringLit{Value: "HELLO"}
	v1 := e.emitStringLit(lit)
	v2 := e.emitStringLit(&ast.StringLit{Value: "HELLO"})
	out := e.Output()

	require.Equal(t, 1, countOccurrences(out, "data $str0"))
	require.NotEmpty(t, v1)
	require.NotEmpty(t, v2)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}

func TestEmitVirtualCallUsesThirtyTwoByteHeaderOffset(t *testing.T) {
	table := fixture.CounterClass()
	e := newTestEmitter(t, table)
	cls := table.Class(0)

	call := &ast.MethodCall{
		CallKind: ast.MethodVirtual,
		Base:     &ast.MeExpr{},
		BaseType: &sema.Type{Category: sema.CatClass, ClassId: cls.ClassId},
		Method:   "NEXT",
	}
	e.emitVirtualCall(call)
	out := e.Output()

	require.Contains(t, out, "add")
	require.Contains(t, out, "32")
	require.Contains(t, out, "class_null_method_error")
}

func TestEmitIsNothingComparesToZero(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	n := &ast.IsExpr{Expr: &ast.Variable{Name: "OBJ", Type: &sema.Type{Category: sema.CatClass, ClassId: 0}}, Target: ast.IsNothing}
	e.emitIs(n)
	out := e.Output()
	require.Contains(t, out, "ceql")
}

func TestEmitUnaryNotNarrowsDoubleConditionBeforeNegation(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	n := &ast.Unary{Op: ast.UnaryNot, Operand: &ast.NumberLit{IsInt: false, FloatVal: 1.5, Expected: fixture.DoubleT}}
	e.emitUnary(n)
	out := e.Output()
	require.Contains(t, out, "dtosi")
}
