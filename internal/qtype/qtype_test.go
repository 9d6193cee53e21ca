package qtype

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/sema"
)

func prim(k sema.PrimKind) *sema.Type { return &sema.Type{Category: sema.CatPrimitive, Prim: k} }

func TestQBETypeMapping(t *testing.T) {
	m := New(sema.NewTable())
	require.Equal(t, W, m.QBEType(prim(sema.PrimInteger)))
	require.Equal(t, L, m.QBEType(prim(sema.PrimLong)))
	require.Equal(t, L, m.QBEType(prim(sema.PrimString)))
	require.Equal(t, S, m.QBEType(prim(sema.PrimSingle)))
	require.Equal(t, D, m.QBEType(prim(sema.PrimDouble)))
}

func TestUDTSizeRecursive16ByteFullQ(t *testing.T) {
	table := sema.NewTable()
	v4 := &sema.UDT{Name: "V4", Fields: []sema.Field{
		{Name: "x", Type: prim(sema.PrimSingle)},
		{Name: "y", Type: prim(sema.PrimSingle)},
		{Name: "z", Type: prim(sema.PrimSingle)},
		{Name: "w", Type: prim(sema.PrimSingle)},
	}}
	table.UDTs = append(table.UDTs, v4)
	m := New(table)

	require.Equal(t, 16, m.UDTSizeRecursive(v4))
	info := m.SimdInfoFor(v4)
	require.True(t, info.Valid)
	require.True(t, info.FullQ)
	require.True(t, info.FloatingPoint)
	require.Equal(t, Arrange4SFloat, info.Arrangement)
}

func TestNestedUDTFieldOffset(t *testing.T) {
	table := sema.NewTable()
	inner := &sema.UDT{Name: "Inner", Fields: []sema.Field{
		{Name: "a", Type: prim(sema.PrimInteger)},
		{Name: "b", Type: prim(sema.PrimInteger)},
		{Name: "c", Type: prim(sema.PrimInteger)},
	}}
	table.UDTs = append(table.UDTs, inner)
	innerType := &sema.Type{Category: sema.CatUDT, UDTId: 0}

	outer := &sema.UDT{Name: "Outer", Fields: []sema.Field{
		{Name: "i1", Type: prim(sema.PrimInteger)},
		{Name: "i2", Type: prim(sema.PrimInteger)},
		{Name: "nested", Type: innerType},
	}}
	m := New(table)

	off, ft, ok := m.FieldOffset(outer, "nested")
	require.True(t, ok)
	require.Equal(t, 8, off)
	require.Equal(t, sema.CatUDT, ft.Category)
}

func TestUDTOfSize16UniformIsFullQ(t *testing.T) {
	table := sema.NewTable()
	u := &sema.UDT{Name: "Pair", Fields: []sema.Field{
		{Name: "a", Type: prim(sema.PrimLong)},
		{Name: "b", Type: prim(sema.PrimLong)},
	}}
	m := New(table)
	info := m.SimdInfoFor(u)
	require.True(t, info.Valid)
	require.True(t, info.FullQ)
	require.False(t, info.FloatingPoint)
	require.Equal(t, Arrange2DInt, info.Arrangement)
}

func TestSimdInfoRejectsMixedFieldTypes(t *testing.T) {
	table := sema.NewTable()
	u := &sema.UDT{Name: "Mixed", Fields: []sema.Field{
		{Name: "a", Type: prim(sema.PrimInteger)},
		{Name: "b", Type: prim(sema.PrimSingle)},
	}}
	m := New(table)
	info := m.SimdInfoFor(u)
	require.False(t, info.Valid)
}

func TestPromotionLattice(t *testing.T) {
	got := PromotedType(prim(sema.PrimByte), prim(sema.PrimDouble))
	require.Equal(t, sema.PrimDouble, got.Prim)

	got = PromotedType(prim(sema.PrimInteger), prim(sema.PrimLong))
	require.Equal(t, sema.PrimLong, got.Prim)
}

func TestConversionOpSentinels(t *testing.T) {
	require.Equal(t, IntToDoubleW, ConversionOp(prim(sema.PrimInteger), prim(sema.PrimDouble)))
	require.Equal(t, DoubleToLong, ConversionOp(prim(sema.PrimDouble), prim(sema.PrimLong)))
	require.Equal(t, FloatToLong, ConversionOp(prim(sema.PrimSingle), prim(sema.PrimLong)))
}

func TestHasStringFieldsRecursesIntoNestedUDT(t *testing.T) {
	table := sema.NewTable()
	inner := &sema.UDT{Name: "Inner", Fields: []sema.Field{
		{Name: "s", Type: prim(sema.PrimString)},
	}}
	table.UDTs = append(table.UDTs, inner)
	outer := &sema.UDT{Name: "Outer", Fields: []sema.Field{
		{Name: "nested", Type: &sema.Type{Category: sema.CatUDT, UDTId: 0}},
	}}
	m := New(table)
	require.True(t, m.HasStringFields(outer))
}
