package emitter

import (
	"fmt"

	"github.com/fasterbasic/qbemit/ast"
	"github.com/fasterbasic/qbemit/cfgir"
	"github.com/fasterbasic/qbemit/internal/qtype"
)

// blockLabel renders a CFG block index as an IL label, stable across a
// whole function's emission (spec.md §4.9).
func (e *Emitter) blockLabel(idx int) string {
	return fmt.Sprintf("@block.%d", idx)
}

// EmitCFG walks an externally-supplied control-flow graph, emitting one
// label and terminator per block; it never synthesises control flow of its
// own the way the method-mode helpers in loop.go do (spec.md §4.7 "CFG
// mode", §4.9). Blocks are emitted in index order — the graph's own edges,
// not textual order, define the actual control flow.
func (e *Emitter) EmitCFG(g *cfgir.Graph) {
	for i := range g.Blocks {
		blk := g.Block(i)
		e.b.EmitLabelDef(e.blockLabel(i))
		for _, s := range blk.Stmts {
			e.EmitStmt(s)
		}
		e.emitTerminator(g, i, blk)
	}
}

// emitTerminator emits the jump(s) that end one block, derived from its
// Edges and, for a two-successor block, the predicate named by Cond.
func (e *Emitter) emitTerminator(g *cfgir.Graph, idx int, blk *cfgir.Block) {
	if idx == g.ExitIdx {
		e.emitFunctionExit()
		return
	}
	switch len(blk.Edges) {
	case 0:
		e.emitFunctionExit()
	case 1:
		e.b.EmitJump(e.blockLabel(blk.Edges[0].To))
	default:
		trueTarget, falseTarget := -1, -1
		for _, edge := range blk.Edges {
			switch edge.Kind {
			case cfgir.EdgeTrue:
				trueTarget = edge.To
			case cfgir.EdgeFalse:
				falseTarget = edge.To
			}
		}
		if trueTarget < 0 || falseTarget < 0 {
			e.errorPlaceholder(fmt.Sprintf("block %d has %d edges but no true/false pair", idx, len(blk.Edges)), nil)
			return
		}
		cond := e.conditionFor(blk)
		e.b.EmitBranch(cond, e.blockLabel(trueTarget), e.blockLabel(falseTarget))
	}
}

// conditionFor resolves the boolean value a two-successor block branches
// on, dispatching on the predicate helper that produced it (spec.md §4.9).
func (e *Emitter) conditionFor(blk *cfgir.Block) string {
	switch blk.Cond {
	case cfgir.CondIf:
		n, ok := blk.CondOwner.(*ast.If)
		if !ok {
			return e.errorPlaceholder("CondIf block owner is not *ast.If", nil)
		}
		return e.emitBoolCond(n.Cond)
	case cfgir.CondWhile:
		n, ok := blk.CondOwner.(*ast.While)
		if !ok {
			return e.errorPlaceholder("CondWhile block owner is not *ast.While", nil)
		}
		return e.emitBoolCond(n.Cond)
	case cfgir.CondDoPre, cfgir.CondLoopPost:
		n, ok := blk.CondOwner.(*ast.Do)
		if !ok || n.Cond == nil {
			return e.errorPlaceholder("CondDoPre/CondLoopPost block owner is not a conditional *ast.Do", nil)
		}
		return e.emitBoolCond(n.Cond)
	case cfgir.CondFor:
		n, ok := blk.CondOwner.(*ast.For)
		if !ok {
			return e.errorPlaceholder("CondFor block owner is not *ast.For", nil)
		}
		return e.emitForConditionTest(n)
	}
	return e.errorPlaceholder("two-successor block with CondNone", nil)
}

// emitForConditionTest re-derives the FOR loop's continuation test — the
// same comparison emitMethodFor performs inline — for CFG mode, where the
// init/increment live in separate blocks the graph already wired up
// (spec.md §4.7, §4.9).
func (e *Emitter) emitForConditionTest(n *ast.For) string {
	addr := e.variableAddress(n.VarName, n.VarType)
	storage := string(e.qt.QBEType(n.VarType))
	cur := e.b.NewTemp()
	e.b.EmitLoad(cur, storage, loadOpFor(n.VarType), addr)
	limit := e.emitCoerced(n.Limit, n.VarType)

	cmpOp := "sle"
	if lit, ok := n.Step.(*ast.NumberLit); ok && lit.IsInt && lit.IntVal < 0 {
		cmpOp = "sge"
	}
	cmp := e.b.NewTemp()
	e.b.EmitCompare(cmp, cmpOp, storage, cur, limit)
	return cmp
}

// emitFunctionExit loads the canonical return slot (if any) and emits the
// function's single `ret`, matching RETURN's CFG-mode store-only behaviour
// in stmt.go.
func (e *Emitter) emitFunctionExit() {
	if e.currentReturn == nil {
		e.b.EmitReturn("")
		return
	}
	slot := qtype.ReturnVariableName(e.fn.Name, e.currentReturn)
	val := e.b.NewTemp()
	e.b.EmitLoad(val, string(e.qt.QBEType(e.currentReturn)), loadOpFor(e.currentReturn), slot)
	e.b.EmitReturn(val)
}
