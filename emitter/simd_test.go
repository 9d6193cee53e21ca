package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

func TestTryVectorizeLoopMatchesArrayPlusArrayPattern(t *testing.T) {
	table, forLoop := fixture.VectorAddProgram()
	e := newTestEmitter(t, table)

	plan, ok := e.TryVectorizeLoop(forLoop)
	require.True(t, ok)
	require.Equal(t, "add", plan.Op)
	require.Equal(t, "RESULT", plan.DestName)
	require.Equal(t, "RESULT", plan.LeftName)
	require.Equal(t, "OTHER", plan.RightName)
}

func TestTryVectorizeLoopRejectsMultiStatementBody(t *testing.T) {
	table, forLoop := fixture.VectorAddProgram()
	e := newTestEmitter(t, table)
	forLoop.Body.Stmts = append(forLoop.Body.Stmts, forLoop.Body.Stmts[0])

	_, ok := e.TryVectorizeLoop(forLoop)
	require.False(t, ok)
}

func TestTryVectorizeLoopRejectsWhenNeonLoopDisabled(t *testing.T) {
	table, forLoop := fixture.VectorAddProgram()
	e, err := New(table, Config{NeonLoop: false, NeonArith: true})
	require.NoError(t, err)
	e.ResetFunction("TEST", false, -1, nil)
	e.b.EmitFunctionHeader("function w $TEST() {")
	e.b.EmitLabelDef("@start")

	_, ok := e.TryVectorizeLoop(forLoop)
	require.False(t, ok)
}

func TestEmitVectorizedLoopEmitsBoundsChecksAndNeonArith(t *testing.T) {
	table, forLoop := fixture.VectorAddProgram()
	e := newTestEmitter(t, table)
	plan, ok := e.TryVectorizeLoop(forLoop)
	require.True(t, ok)

	e.EmitVectorizedLoop(forLoop, plan)
	out := e.Output()

	require.Contains(t, out, "array_check_range")
	require.Contains(t, out, "array_get_data_ptr")
	require.Contains(t, out, "neonldr ")
	require.Contains(t, out, "neonldr2 ")
	require.Contains(t, out, "neonadd 0")
	require.Contains(t, out, "neonstr ")
}

func TestNeonUDTArithEligibleRejectsStringField(t *testing.T) {
	table := sema.NewTable()
	udt := &sema.UDT{
		Name: "MIXED",
		Fields: []sema.Field{
			{Name: "N", Type: fixture.IntT},
			{Name: "S", Type: fixture.StringT},
		},
	}
	table.UDTs = append(table.UDTs, udt)
	udtId := len(table.UDTs) - 1
	e := newTestEmitter(t, table)

	_, ok := e.neonUDTArithEligible(&sema.Type{Category: sema.CatUDT, UDTId: udtId})
	require.False(t, ok)
}

func TestEmitNeonUDTCopyEmitsLoadAndStore(t *testing.T) {
	e := newTestEmitter(t, sema.NewTable())
	destAddr := e.b.NewTemp()
	e.b.EmitAlloc(destAddr, 8, 16)
	srcAddr := e.b.NewTemp()
	e.b.EmitAlloc(srcAddr, 8, 16)

	info := e.qt.SimdInfoFor(&sema.UDT{Fields: []sema.Field{
		{Name: "X", Type: fixture.IntT}, {Name: "Y", Type: fixture.IntT},
		{Name: "Z", Type: fixture.IntT}, {Name: "W", Type: fixture.IntT},
	}})
	e.emitNeonUDTCopy(destAddr, srcAddr, info)
	out := e.Output()

	require.Contains(t, out, "neonldr "+srcAddr)
	require.Contains(t, out, "neonstr "+destAddr)
}
