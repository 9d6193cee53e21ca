package mangle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMangleStripsSigilsAndSuffixes(t *testing.T) {
	require.Equal(t, "%Count", Mangle("Count%", false))
	require.Equal(t, "%Name", Mangle("Name$", false))
	require.Equal(t, "$Total", Mangle("Total_LONG", true))
	require.Equal(t, "%Price", Mangle("Price_DOUBLE", false))
}

func TestMangleIsIdempotent(t *testing.T) {
	once := Mangle("score%", false)
	twice := Mangle(once, false)
	require.Equal(t, once, twice)
}

func TestMangleGlobalVsLocalPrefix(t *testing.T) {
	require.Equal(t, "$x", Mangle("x", true))
	require.Equal(t, "%x", Mangle("x", false))
}

func TestFuncContextTracksParamsAndShared(t *testing.T) {
	fc := NewFuncContext("DoStuff")
	fc.AddParam("n%")
	fc.AddShared("total$")

	require.True(t, fc.IsParam("n%"))
	require.True(t, fc.IsShared("total$"))
	require.False(t, fc.IsParam("total$"))
}

func TestNewLabelIsUniquePerPrefix(t *testing.T) {
	fc := NewFuncContext("f")
	a := fc.NewLabel("for")
	b := fc.NewLabel("for")
	c := fc.NewLabel("if")
	require.NotEqual(t, a, b)
	require.Equal(t, "@for.0", a)
	require.Equal(t, "@for.1", b)
	require.Equal(t, "@if.0", c)
}
