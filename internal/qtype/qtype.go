// Package qtype is the Type Manager: mapping of source types to IL storage
// classes and byte sizes, numeric promotion, UDT layout and SIMD
// eligibility (spec.md §4.2).
package qtype

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/fasterbasic/qbemit/sema"
)

// Storage is one of QBE's four disjoint storage classes (spec.md §3).
type Storage string

const (
	W Storage = "w"
	L Storage = "l"
	S Storage = "s"
	D Storage = "d"
)

// Manager resolves source types against a symbol table's UDTs.
type Manager struct {
	table *sema.Table
}

func New(table *sema.Table) *Manager {
	return &Manager{table: table}
}

// QBEType maps a source type to its storage class.
func (m *Manager) QBEType(t *sema.Type) Storage {
	switch t.Category {
	case sema.CatPrimitive:
		switch t.Prim {
		case sema.PrimByte, sema.PrimUByte, sema.PrimShort, sema.PrimUShort,
			sema.PrimInteger, sema.PrimUInteger:
			return W
		case sema.PrimLong, sema.PrimULong, sema.PrimString:
			return L
		case sema.PrimSingle:
			return S
		case sema.PrimDouble:
			return D
		}
	case sema.CatUDT, sema.CatClass, sema.CatArray, sema.CatHashmap, sema.CatRuntimeObject:
		return L
	}
	return L
}

// TypeSize returns a primitive's or pointer-shaped type's byte size.
func (m *Manager) TypeSize(t *sema.Type) int {
	switch t.Category {
	case sema.CatPrimitive:
		switch t.Prim {
		case sema.PrimByte, sema.PrimUByte:
			return 1
		case sema.PrimShort, sema.PrimUShort:
			return 2
		case sema.PrimInteger, sema.PrimUInteger:
			return 4
		case sema.PrimLong, sema.PrimULong, sema.PrimString:
			return 8
		case sema.PrimSingle:
			return 4
		case sema.PrimDouble:
			return 8
		}
	case sema.CatUDT:
		return m.UDTSizeRecursive(m.table.UDT(t.UDTId))
	case sema.CatClass, sema.CatArray, sema.CatHashmap, sema.CatRuntimeObject:
		return 8
	}
	return 8
}

// TypeSuffixChar returns the ASCII code of elem's storage-class letter
// (`w`/`l`/`s`/`d`), the tag `array_new` expects for a primitive-element
// array (spec.md §4.6 "array_new(type_suffix_char, rank, bounds_buffer,
// base)"). UDT-element arrays never call this — they route through
// array_new_custom by element size instead.
func (m *Manager) TypeSuffixChar(elem *sema.Type) int {
	return int(m.QBEType(elem)[0])
}

// UDTSizeRecursive sums field sizes, recursing into nested UDTs. No field
// padding is applied, matching spec.md §3's default layout.
func (m *Manager) UDTSizeRecursive(u *sema.UDT) int {
	if u == nil {
		return 0
	}
	total := 0
	for _, f := range u.Fields {
		total += m.TypeSize(f.Type)
	}
	return total
}

// FieldOffset returns the byte offset of fieldName within u, summing the
// sizes of the preceding fields in canonical source order — offsets are
// monotonically non-decreasing by construction (spec.md §3 invariant).
func (m *Manager) FieldOffset(u *sema.UDT, fieldName string) (int, *sema.Type, bool) {
	if u == nil {
		return 0, nil, false
	}
	offset := 0
	for _, f := range u.Fields {
		if f.Name == fieldName {
			return offset, f.Type, true
		}
		offset += m.TypeSize(f.Type)
	}
	return 0, nil, false
}

// promotionRank orders the numeric promotion lattice of spec.md §4.2:
// byte/short < integer < long < single < double.
func promotionRank(t *sema.Type) int {
	if t.Category != sema.CatPrimitive {
		return -1
	}
	switch t.Prim {
	case sema.PrimByte, sema.PrimUByte, sema.PrimShort, sema.PrimUShort:
		return 0
	case sema.PrimInteger, sema.PrimUInteger:
		return 1
	case sema.PrimLong, sema.PrimULong:
		return 2
	case sema.PrimSingle:
		return 3
	case sema.PrimDouble:
		return 4
	}
	return -1
}

// PromotedType returns the common type two operands should be converted to
// before a binary op is applied. Strings only compose with strings.
func PromotedType(a, bType *sema.Type) *sema.Type {
	if a.IsString() || bType.IsString() {
		return a
	}
	if promotionRank(bType) > promotionRank(a) {
		return bType
	}
	return a
}

// NeedsConversion reports whether a value of type from must be converted
// before being used as type to.
func NeedsConversion(from, to *sema.Type) bool {
	if from.Category != to.Category {
		return true
	}
	if from.Category == sema.CatPrimitive {
		return from.Prim != to.Prim
	}
	return false
}

// Sentinel conversion opcodes the emitter special-cases (spec.md §4.2): the
// two int-to-double sentinels lower to a single swtof/sltof with a double
// result, and the two float-to-long sentinels to a two-step dtosi/stosi
// followed by extsw.
const (
	IntToDoubleW = "INT_TO_DOUBLE_W"
	IntToDoubleL = "INT_TO_DOUBLE_L"
	DoubleToLong = "DOUBLE_TO_LONG"
	FloatToLong  = "FLOAT_TO_LONG"
)

// ConversionOp picks the QBE opcode (or one of the sentinels above) that
// converts a value of type from to type to.
func ConversionOp(from, to *sema.Type) string {
	fw, tw := m0QBEType(from), m0QBEType(to)
	switch {
	case fw == W && tw == L:
		return "extsw"
	case fw == L && tw == W:
		return "copy"
	case fw == W && tw == S:
		return "swtof"
	case fw == W && tw == D:
		return IntToDoubleW
	case fw == L && tw == D:
		return IntToDoubleL
	case fw == L && tw == S:
		return "sltof"
	case fw == S && tw == D:
		return "exts"
	case fw == D && tw == S:
		return "truncd"
	case fw == S && tw == W:
		return "stosi"
	case fw == D && tw == W:
		return "dtosi"
	case fw == S && tw == L:
		return FloatToLong
	case fw == D && tw == L:
		return DoubleToLong
	default:
		return "copy"
	}
}

// m0QBEType is a free function mirror of (*Manager).QBEType for primitive
// types only, since ConversionOp never needs UDT/class storage classes.
func m0QBEType(t *sema.Type) Storage {
	if t.Category != sema.CatPrimitive {
		return L
	}
	switch t.Prim {
	case sema.PrimByte, sema.PrimUByte, sema.PrimShort, sema.PrimUShort,
		sema.PrimInteger, sema.PrimUInteger:
		return W
	case sema.PrimLong, sema.PrimULong, sema.PrimString:
		return L
	case sema.PrimSingle:
		return S
	case sema.PrimDouble:
		return D
	}
	return L
}

// Arrangement is the 2-bit NEON lane-geometry tag of spec.md §4.8.
type Arrangement int

const (
	Arrange4SInt Arrangement = iota
	Arrange2DInt
	Arrange4SFloat
	Arrange2DFloat
)

// SimdInfo is the SIMD classification of a UDT (spec.md §4.2, §3).
type SimdInfo struct {
	Valid          bool
	FullQ          bool
	FloatingPoint  bool
	LaneCount      int
	LaneBitWidth   int
	TotalBytes     int
	Arrangement    Arrangement
}

// AllSamePrimitive reports whether every field of u has the same primitive
// kind, using lo.EveryBy for the whole-collection predicate per
// SPEC_FULL.md's ambient-stack note on samber/lo usage.
func AllSamePrimitive(u *sema.UDT) (sema.PrimKind, bool) {
	if len(u.Fields) == 0 {
		return 0, false
	}
	first := u.Fields[0].Type
	if first.Category != sema.CatPrimitive {
		return 0, false
	}
	ok := lo.EveryBy(u.Fields, func(f sema.Field) bool {
		return f.Type.Category == sema.CatPrimitive && f.Type.Prim == first.Prim
	})
	if !ok {
		return 0, false
	}
	return first.Prim, true
}

// SimdInfoFor computes a UDT's SIMD classification. Validity requires
// uniform primitive fields and total size <=16 bytes; full-Q requires
// exactly 16 bytes.
func (m *Manager) SimdInfoFor(u *sema.UDT) SimdInfo {
	prim, uniform := AllSamePrimitive(u)
	if !uniform {
		return SimdInfo{}
	}
	total := m.UDTSizeRecursive(u)
	if total > 16 {
		return SimdInfo{}
	}
	fieldSize := m.TypeSize(u.Fields[0].Type)
	isFloat := prim == sema.PrimSingle || prim == sema.PrimDouble
	info := SimdInfo{
		Valid:         true,
		FullQ:         total == 16,
		FloatingPoint: isFloat,
		LaneCount:     total / fieldSize,
		LaneBitWidth:  fieldSize * 8,
		TotalBytes:    total,
	}
	switch {
	case !isFloat && fieldSize <= 4:
		info.Arrangement = Arrange4SInt
	case !isFloat && fieldSize == 8:
		info.Arrangement = Arrange2DInt
	case isFloat && fieldSize == 4:
		info.Arrangement = Arrange4SFloat
	case isFloat && fieldSize == 8:
		info.Arrangement = Arrange2DFloat
	}
	return info
}

// HasStringFields reports whether u transitively contains a STRING field,
// recursing into nested UDTs (spec.md §4.2).
func (m *Manager) HasStringFields(u *sema.UDT) bool {
	if u == nil {
		return false
	}
	for _, f := range u.Fields {
		if f.Type.IsString() {
			return true
		}
		if f.Type.IsUDT() {
			if m.HasStringFields(m.table.UDT(f.Type.UDTId)) {
				return true
			}
		}
	}
	return false
}

// ReturnVariableName is the canonical per-function return-value slot name.
func ReturnVariableName(funcName string, t *sema.Type) string {
	return fmt.Sprintf("%%.ret.%s", funcName)
}
