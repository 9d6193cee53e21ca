package ast

import "github.com/fasterbasic/qbemit/sema"

// LValueKind distinguishes the seven LET-target shapes the Statement
// Emitter resolves in priority order (spec.md §4.6).
type LValueKind int

const (
	LValueClassMemberChain LValueKind = iota
	LValueUDTMemberChain
	LValueUDTWhole
	LValueObjectSubscript
	LValueArrayElemUDT
	LValueArrayElem
	LValueScalar
)

// LValue is the resolved target of a LET assignment. Only the fields
// relevant to Kind are populated; the Statement Emitter's resolver is the
// single place that decides Kind (spec.md §4.6 priority list).
type LValue struct {
	Kind       LValueKind
	Base       Node   // ME, a class variable, a non-class base, or nil for a bare scalar
	Fields     []string
	ArrayName  string
	ObjectName string
	Indices    []Node
	VarName    string
	Type       *sema.Type
}

// Let is `lvalue = expr`.
type Let struct {
	Position
	Target LValue
	Value  Node
}

func (*Let) Kind() Kind { return KindLet }

// PrintItem is one comma/semicolon-separated item of a PRINT list.
type PrintItem struct {
	Expr       Node
	Type       *sema.Type
	TrailingTab bool
}

// Print is a PRINT statement.
type Print struct {
	Position
	Items         []PrintItem
	SuppressNewline bool
}

func (*Print) Kind() Kind { return KindPrint }

// Input is an INPUT statement targeting one variable.
type Input struct {
	Position
	Prompt string
	Target Variable
}

func (*Input) Kind() Kind { return KindInput }

// End is the END statement.
type End struct {
	Position
}

func (*End) Kind() Kind { return KindEnd }

// ReturnContext distinguishes the three RETURN shapes of spec.md §4.6.
type ReturnContext int

const (
	ReturnMethodValue ReturnContext = iota
	ReturnMethodVoid
	ReturnFunctionCFG
)

// Return is a RETURN statement.
type Return struct {
	Position
	Context    ReturnContext
	Value      Node // nil for void
	ReturnType *sema.Type
}

func (*Return) Kind() Kind { return KindReturn }

// DimKind distinguishes the four DIM shapes of spec.md §4.6.
type DimKind int

const (
	DimClassScalar DimKind = iota
	DimObjectScalar
	DimArray
	DimMethodLocal
)

// DimBound is one (lower, upper) pair of an array dimension.
type DimBound struct {
	Lower, Upper Node
}

// Dim is a DIM declaration.
type Dim struct {
	Position
	DimKind     DimKind
	Name        string
	Type        *sema.Type
	ElemType    *sema.Type // for DimArray
	Bounds      []DimBound // for DimArray
	Initializer Node       // optional
	ObjectType  string     // for DimObjectScalar
}

func (*Dim) Kind() Kind { return KindDim }

// Redim is a REDIM statement.
type Redim struct {
	Position
	ArrayName string
	Bounds    []DimBound
	Preserve  bool
}

func (*Redim) Kind() Kind { return KindRedim }

// Erase frees one or more arrays.
type Erase struct {
	Position
	ArrayNames []string
}

func (*Erase) Kind() Kind { return KindErase }

// Read is `READ var`.
type Read struct {
	Position
	Targets []Variable
}

func (*Read) Kind() Kind { return KindRead }

// RestoreTarget distinguishes the three RESTORE forms.
type RestoreTarget int

const (
	RestoreStart RestoreTarget = iota
	RestoreLineLabel
	RestoreUserLabel
)

// Restore is a RESTORE statement.
type Restore struct {
	Position
	Target RestoreTarget
	Label  string
}

func (*Restore) Kind() Kind { return KindRestore }

// Local is a METHOD-local scalar declaration.
type Local struct {
	Position
	Name        string
	Type        *sema.Type
	Initializer Node
}

func (*Local) Kind() Kind { return KindLocal }

// CallStmt is `CALL sub(args)` used as a statement.
type CallStmt struct {
	Position
	Name string
	Args []Node
}

func (*CallStmt) Kind() Kind { return KindCallStmt }

// Delete is `DELETE var`.
type Delete struct {
	Position
	Target Node
}

func (*Delete) Kind() Kind { return KindDelete }

// SliceAssign is `s$(a TO b) = r$`.
type SliceAssign struct {
	Position
	Target      Variable
	From, To    Node
	Replacement Node
}

func (*SliceAssign) Kind() Kind { return KindSliceAssign }

// ClassDecl, SharedDecl, GlobalDecl are non-executable declarations; the
// emitter emits a comment only (spec.md §4.6).
type ClassDecl struct {
	Position
	ClassId int
}

func (*ClassDecl) Kind() Kind { return KindClassDecl }

type SharedDecl struct {
	Position
	Name string
}

func (*SharedDecl) Kind() Kind { return KindSharedDecl }

type GlobalDecl struct {
	Position
	Name string
}

func (*GlobalDecl) Kind() Kind { return KindGlobalDecl }

// Gosub and GosubReturn implement the classic BASIC GOSUB return-address
// stack (spec.md §4.10 step 4, a supplemented feature).
type Gosub struct {
	Position
	TargetLabel string
}

func (*Gosub) Kind() Kind { return KindGosub }

type GosubReturn struct {
	Position
}

func (*GosubReturn) Kind() Kind { return KindGosubReturn }

// Block is an ordered list of statements, used by method-mode control
// constructs (spec.md §4.7) which walk statements linearly rather than via
// an external CFG.
type Block struct {
	Position
	Stmts []Node
}

// If is method-mode's self-contained IF/ELSE.
type If struct {
	Position
	Cond       Node
	Then, Else *Block
}

func (*If) Kind() Kind { return KindIf }

// For is method-mode's self-contained FOR loop.
type For struct {
	Position
	VarName       string
	VarType       *sema.Type
	Start, Limit  Node
	Step          Node // nil means step 1
	Body          *Block
}

func (*For) Kind() Kind { return KindFor }

// ForEachSource distinguishes iterating an ARRAY from a HASHMAP.
type ForEachSource int

const (
	ForEachArray ForEachSource = iota
	ForEachHashmap
)

// ForEach is `FOR EACH k[, v] IN source`.
type ForEach struct {
	Position
	Source    ForEachSource
	Container Node
	KeyVar    string
	ValueVar  string // empty when no value variable
	ElemType  *sema.Type
	Body      *Block
}

func (*ForEach) Kind() Kind { return KindForEach }

// While is method-mode's self-contained WHILE loop.
type While struct {
	Position
	Cond Node
	Body *Block
}

func (*While) Kind() Kind { return KindWhile }

// DoConditionPos distinguishes DO/LOOP WHILE from DO WHILE/LOOP.
type DoConditionPos int

const (
	DoPreCondition DoConditionPos = iota
	DoPostCondition
)

// Do is method-mode's DO/LOOP with an optional pre- or post- condition.
type Do struct {
	Position
	ConditionPos DoConditionPos
	Cond         Node // nil for an unconditional DO ... LOOP
	Body         *Block
}

func (*Do) Kind() Kind { return KindDo }
