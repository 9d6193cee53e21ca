// Package sema gives the symbol and type tables produced by semantic
// analysis a concrete Go shape. The real symbol table outlives the emitter
// and is shared with other compiler stages, so — per the "pointer graphs
// into the symbol table" design note — everything here is reached through
// stable integer ids into arena slices on *Table, never raw pointers.
package sema

// PrimKind enumerates the primitive source types of spec.md §3.
type PrimKind int

const (
	PrimByte PrimKind = iota
	PrimUByte
	PrimShort
	PrimUShort
	PrimInteger
	PrimUInteger
	PrimLong
	PrimULong
	PrimSingle
	PrimDouble
	PrimString
)

// TypeCategory distinguishes the layered type model of spec.md §2/§3.
type TypeCategory int

const (
	CatVoid TypeCategory = iota
	CatPrimitive
	CatUDT
	CatClass
	CatArray
	CatHashmap
	CatRuntimeObject
)

// Type is a fully-resolved source type as the emitter sees it. UDTId,
// ClassId, ElemType and ObjectKind are only meaningful for their matching
// Category.
type Type struct {
	Category   TypeCategory
	Prim       PrimKind
	UDTId      int
	ClassId    int
	ElemType   *Type
	ObjectKind string // runtime-object type name, e.g. "HASHMAP"
}

func (t *Type) IsString() bool { return t.Category == CatPrimitive && t.Prim == PrimString }
func (t *Type) IsUDT() bool    { return t.Category == CatUDT }
func (t *Type) IsClass() bool  { return t.Category == CatClass }
func (t *Type) IsArray() bool  { return t.Category == CatArray }

// Field is one ordered field of a UDT, in canonical source order.
type Field struct {
	Name string
	Type *Type
}

// UDT is a named record of fields, laid out with no padding as spec.md §3
// requires.
type UDT struct {
	Name   string
	Fields []Field
}

// Method is one entry of a class's vtable.
type Method struct {
	Name       string
	Slot       int // stable index into the vtable's method region
	ParamTypes []*Type
	ReturnType *Type
	IsVirtual  bool
	MangledSym string // for SUPER calls and constructors/destructors
}

// Class describes a class's fields, methods and identity for the runtime
// ABI (spec.md §3 "Class instance").
type Class struct {
	Name            string
	ParentId        int // -1 if no parent
	Fields          []Field
	FieldOffsets    []int // parallel to Fields, offsets past the vtable slot
	Methods         []Method
	ClassId         int
	ObjectSize      int
	VtableSymbol    string
	ConstructorSym  string
	DestructorSym   string
	CtorParamTypes  []*Type
}

// Function describes a top-level FUNCTION/SUB.
type Function struct {
	Name       string
	Params     []Field
	ReturnType *Type // nil for SUB
	IsMethod   bool
	ClassId    int // valid when IsMethod
}

// VarScope distinguishes globals, SHARED variables and ordinary locals —
// the Symbol Mapper needs this to decide mangling and the "current
// function" shared-variable set (spec.md §4.3).
type VarScope int

const (
	ScopeLocal VarScope = iota
	ScopeParam
	ScopeShared
	ScopeGlobal
)

// Variable describes one declared variable.
type Variable struct {
	Name  string
	Type  *Type
	Scope VarScope
}

// ArrayDecl describes a declared array's element type and rank.
type ArrayDecl struct {
	Name     string
	ElemType *Type
	Rank     int
	IsGlobal bool
}

// RuntimeObjectType is one entry of the string-keyed object-type registry
// (spec.md §3 "Hashmap / runtime object", §9 "string-keyed registries").
type RuntimeObjectType struct {
	Name           string
	ConstructorFn  string
	DefaultArgs    string
	GetFn          string
	SetFn          string
	KeyFn          string
	Methods        map[string]RuntimeMethod
}

// RuntimeMethod is one named, non-virtual method of a runtime object type.
type RuntimeMethod struct {
	FuncName   string
	ParamTypes []*Type
	ReturnType *Type
}

// Table is the arena the emitter reads from. It is built once by semantic
// analysis and never mutated by the emitter.
type Table struct {
	UDTs      []*UDT
	Classes   []*Class
	Functions []*Function
	Variables map[string]*Variable
	Arrays    map[string]*ArrayDecl
	Objects   map[string]*RuntimeObjectType
}

func NewTable() *Table {
	return &Table{
		Variables: make(map[string]*Variable),
		Arrays:    make(map[string]*ArrayDecl),
		Objects:   make(map[string]*RuntimeObjectType),
	}
}

func (t *Table) UDT(id int) *UDT {
	if id < 0 || id >= len(t.UDTs) {
		return nil
	}
	return t.UDTs[id]
}

func (t *Table) Class(id int) *Class {
	if id < 0 || id >= len(t.Classes) {
		return nil
	}
	return t.Classes[id]
}

// MethodSlot finds a method by name, walking up the parent chain so an
// override keeps the base class's slot — a class's vtable slot is stable
// across every instance (spec.md §3 invariant).
func (t *Table) MethodSlot(classId int, name string) (*Method, *Class, bool) {
	for classId >= 0 {
		c := t.Class(classId)
		if c == nil {
			return nil, nil, false
		}
		for i := range c.Methods {
			if c.Methods[i].Name == name {
				return &c.Methods[i], c, true
			}
		}
		classId = c.ParentId
	}
	return nil, nil, false
}
