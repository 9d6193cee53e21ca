// Package cfgir models the externally-built control-flow graph that the
// top-level orchestrator and CFG Emitter walk for functions, SUBs and the
// top-level program (spec.md §4.9, §6 "Consumed from semantics"). The CFG
// is an input — this package only gives it a concrete Go shape.
package cfgir

import "github.com/fasterbasic/qbemit/ast"

// EdgeKind tags an outgoing edge so the CFG Emitter knows which predicate
// helper produced it (spec.md §4.9).
type EdgeKind int

const (
	EdgeAlways EdgeKind = iota
	EdgeTrue
	EdgeFalse
)

// CondKind names which predicate helper a two-successor block's condition
// was produced by.
type CondKind int

const (
	CondNone CondKind = iota
	CondIf
	CondWhile
	CondFor
	CondDoPre
	CondLoopPost
)

// Edge is one outgoing edge of a Block.
type Edge struct {
	Kind EdgeKind
	To   int // target block index
}

// Block is one basic block of the CFG: an ordered statement list plus
// outgoing edges. The statement emitter never synthesises control flow
// itself in CFG mode — it only emits the statements, and the CFG Emitter
// emits the label and terminator (spec.md §4.7 "CFG mode").
type Block struct {
	Label     int
	Stmts     []ast.Node
	Edges     []Edge
	Cond      CondKind
	CondOwner ast.Node // the For/If/While/Do node whose condition this block tests, nil for CondNone
}

// Graph is one function's (or the program's) control-flow graph.
type Graph struct {
	Blocks    []Block
	EntryIdx  int
	ExitIdx   int // the exit block; EmitCFG labels it @block.<ExitIdx> and emits ret there
}

func (g *Graph) Block(idx int) *Block {
	if idx < 0 || idx >= len(g.Blocks) {
		return nil
	}
	return &g.Blocks[idx]
}
