package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/cfgir"
	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

func TestEmitCFGHelloWorldEmitsBlockLabelAndRet(t *testing.T) {
	table, g := fixture.HelloWorld()
	e := newTestEmitter(t, table)

	e.EmitCFG(g)
	out := e.Output()

	require.Contains(t, out, "@block.0")
	require.Contains(t, out, "ret")
}

func TestEmitCFGCountdownEmitsCondForBranch(t *testing.T) {
	table, g := fixture.CountdownLoop()
	e := newTestEmitter(t, table)

	e.EmitCFG(g)
	out := e.Output()

	require.Contains(t, out, "jnz")
	require.Contains(t, out, "csgew")
}

func TestEmitTerminatorSingleEdgeEmitsUnconditionalJump(t *testing.T) {
	table := sema.NewTable()
	e := newTestEmitter(t, table)
	g := &cfgir.Graph{
		Blocks: []cfgir.Block{
			{Edges: []cfgir.Edge{{Kind: cfgir.EdgeAlways, To: 1}}},
			{},
		},
		EntryIdx: 0, ExitIdx: 1,
	}
	e.emitTerminator(g, 0, g.Block(0))
	out := e.Output()
	require.Contains(t, out, "jmp @block.1")
}

func TestEmitTerminatorZeroEdgesFallsBackToFunctionExit(t *testing.T) {
	table := sema.NewTable()
	e := newTestEmitter(t, table)
	g := &cfgir.Graph{Blocks: []cfgir.Block{{}}, EntryIdx: 0, ExitIdx: -1}
	e.emitTerminator(g, 0, g.Block(0))
	out := e.Output()
	require.Contains(t, out, "ret")
}

func TestEmitFunctionExitLoadsReturnSlotWhenFunctionHasReturnType(t *testing.T) {
	table := sema.NewTable()
	e, err := New(table, Config{})
	require.NoError(t, err)
	e.ResetFunction("ADDONE", false, -1, fixture.IntT)
	e.b.EmitFunctionHeader("function w $ADDONE() {")
	e.b.EmitLabelDef("@start")

	e.emitFunctionExit()
	out := e.Output()

	require.Contains(t, out, "loadw")
	require.Contains(t, out, "ret")
}

func TestConditionForCondIfDelegatesToBoolCond(t *testing.T) {
	table := sema.NewTable()
	table.Variables["X"] = &sema.Variable{Name: "X", Type: fixture.IntT, Scope: sema.ScopeGlobal}
	e := newTestEmitter(t, table)

	ifNode := &ast.If{Cond: &ast.Binary{
		Op:    ast.OpEq,
		Left:  &ast.Variable{Name: "X", Type: fixture.IntT},
		Right: &ast.NumberLit{IsInt: true, IntVal: 0, Expected: fixture.IntT},
	}}
	blk := &cfgir.Block{Cond: cfgir.CondIf, CondOwner: ifNode}
	e.conditionFor(blk)
	out := e.Output()
	require.Contains(t, out, "ceqw")
}
