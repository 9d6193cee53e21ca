package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/internal/fixture"
)

func TestEmitProgramHelloWorld(t *testing.T) {
	table, graph := fixture.HelloWorld()
	e, err := New(table, Config{})
	require.NoError(t, err)

	e.EmitProgram(&Program{TopLevel: graph})
	out := e.Output()

	require.Contains(t, out, "function w $main()")
	require.Contains(t, out, "basic_print_string_desc")
	require.Contains(t, out, "data $str0")
}

func TestEmitProgramCountdownUsesCFGForBlock(t *testing.T) {
	table, graph := fixture.CountdownLoop()
	e, err := New(table, Config{})
	require.NoError(t, err)

	e.EmitProgram(&Program{TopLevel: graph})
	out := e.Output()

	require.Contains(t, out, "@block.0")
	require.Contains(t, out, "@block.1")
	require.Contains(t, out, "jnz")
	require.Contains(t, out, "basic_print_int")
}

func TestEmitProgramSAMMWrapsMain(t *testing.T) {
	table, graph := fixture.HelloWorld()
	e, err := New(table, Config{SAMM: true})
	require.NoError(t, err)

	e.EmitProgram(&Program{TopLevel: graph})
	out := e.Output()

	enterIdx := strings.Index(out, "samm_enter_scope")
	shutdownIdx := strings.Index(out, "samm_shutdown")
	require.GreaterOrEqual(t, enterIdx, 0)
	require.GreaterOrEqual(t, shutdownIdx, 0)
	require.Less(t, enterIdx, shutdownIdx)
}

func TestEmitClassUnitVtableHeaderMatchesVirtualCallOffset(t *testing.T) {
	table := fixture.CounterClass()
	e, err := New(table, Config{})
	require.NoError(t, err)

	cls := table.Class(0)
	sym := e.emitVtable(cls)
	require.Equal(t, cls.VtableSymbol, sym)

	out := e.Output()
	require.Contains(t, out, "data $Counter.vtable = align 8 { w 0, z 28, l $Counter.Next }")
}
