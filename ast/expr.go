package ast

import "github.com/fasterbasic/qbemit/sema"

// NumberLit is an integer or floating literal; Expected, when non-nil, is
// the type context the Expression Emitter should format the literal for
// (spec.md §4.5 "Number literal").
type NumberLit struct {
	Position
	IsInt    bool
	IntVal   int64
	FloatVal float64
	Expected *sema.Type
}

func (*NumberLit) Kind() Kind { return KindNumberLit }

// StringLit is a source string literal, registered in the IL builder's
// content-addressed pool on first use.
type StringLit struct {
	Position
	Value string
}

func (*StringLit) Kind() Kind { return KindStringLit }

// Variable references a declared variable by its unmangled source name.
type Variable struct {
	Position
	Name string
	Type *sema.Type
}

func (*Variable) Kind() Kind { return KindVariable }

// Binary is a binary expression; both operands are promoted to a common
// type before the operator is applied (spec.md §4.5 "Binary").
type Binary struct {
	Position
	Op          BinaryOp
	Left, Right Node
}

func (*Binary) Kind() Kind { return KindBinary }

// Unary is a unary expression.
type Unary struct {
	Position
	Op      UnaryOp
	Operand Node
}

func (*Unary) Kind() Kind { return KindUnary }

// ArrayAccess indexes an array variable with one expression per rank.
type ArrayAccess struct {
	Position
	ArrayName string
	ElemType  *sema.Type
	Indices   []Node
}

func (*ArrayAccess) Kind() Kind { return KindArrayAccess }

// MemberAccess is `base.Field[.Field...]`, either a class field access or a
// UDT field chain (spec.md §4.5 "Member access" — two distinct paths).
type MemberAccess struct {
	Position
	Base   Node
	Fields []string
}

func (*MemberAccess) Kind() Kind { return KindMemberAccess }

// IIF is the `IIF(cond, a, b)` ternary.
type IIF struct {
	Position
	Cond, Then, Else Node
	ResultType       *sema.Type
}

func (*IIF) Kind() Kind { return KindIIF }

// Call is a plain function/SUB-as-expression call.
type Call struct {
	Position
	Name string
	Args []Node
}

func (*Call) Kind() Kind { return KindCall }

// MethodCallKind distinguishes the two MethodCall paths of spec.md §4.5
// (virtual dispatch and runtime-object method); SUPER calls are the
// separate SuperCall node.
type MethodCallKind int

const (
	MethodVirtual MethodCallKind = iota
	MethodRuntimeObject
)

// MethodCall is `base.Method(args)`.
type MethodCall struct {
	Position
	CallKind MethodCallKind
	Base     Node
	BaseType *sema.Type
	Method   string
	Args     []Node
}

func (*MethodCall) Kind() Kind { return KindMethodCall }

// NewExpr is `NEW ClassName(args)`.
type NewExpr struct {
	Position
	ClassId int
	Args    []Node
}

func (*NewExpr) Kind() Kind { return KindNewExpr }

// MeExpr is the `ME` keyword inside a method body.
type MeExpr struct {
	Position
}

func (*MeExpr) Kind() Kind { return KindMeExpr }

// IsExprTarget distinguishes `IS NOTHING` from `IS ClassName`.
type IsExprTarget int

const (
	IsNothing IsExprTarget = iota
	IsClass
)

// IsExpr is `expr IS NOTHING` or `expr IS ClassName`.
type IsExpr struct {
	Position
	Expr    Node
	Target  IsExprTarget
	ClassId int // valid when Target == IsClass
}

func (*IsExpr) Kind() Kind { return KindIsExpr }

// SuperCall is `SUPER.M(args)`, a direct non-virtual call.
type SuperCall struct {
	Position
	ParentClassId int
	Method        string
	Args          []Node
}

func (*SuperCall) Kind() Kind { return KindSuperCall }

// BuiltinFunc enumerates the dispatched-by-name builtins of spec.md §4.5.
type BuiltinFunc int

const (
	BuiltinAbs BuiltinFunc = iota
	BuiltinSgn
	BuiltinLen
	BuiltinMid
	BuiltinLeft
	BuiltinRight
	BuiltinChr
	BuiltinAsc
	BuiltinStr
	BuiltinVal
	BuiltinUCase
	BuiltinLCase
	BuiltinSin
	BuiltinCos
	BuiltinTan
	BuiltinLog
	BuiltinExp
	BuiltinSqrt
	BuiltinSqr
	BuiltinInt
	BuiltinFix
	BuiltinRnd
	BuiltinStringSlice
)

// BuiltinCall is a call to one of the built-in functions.
type BuiltinCall struct {
	Position
	Name BuiltinFunc
	Args []Node
}

func (*BuiltinCall) Kind() Kind { return KindBuiltinCall }

// PluginCall marshals parameters to an externally-loaded plugin function
// (spec.md §4.5 "Plugin calls").
type PluginCall struct {
	Position
	PluginAddr int64 // numeric literal runtime address of the plugin function
	ParamTypes []*sema.Type
	Args       []Node
	ReturnType *sema.Type
}

func (*PluginCall) Kind() Kind { return KindPluginCall }
