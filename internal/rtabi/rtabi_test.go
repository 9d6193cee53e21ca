package rtabi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fasterbasic/qbemit/internal/ilbuilder"
)

func TestLoadParsesEmbeddedTable(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	sig, ok := table.Lookup("string_retain")
	require.True(t, ok)
	require.Equal(t, []string{"l"}, sig.Params)
	require.Equal(t, "l", sig.Ret)

	_, ok = table.Lookup("not_a_real_function")
	require.False(t, ok)
}

func TestLoadCoversFullExternalSurface(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	for _, name := range []string{
		"basic_print_int", "basic_print_string_desc", "basic_input_double",
		"string_slice_assign", "array_get_address", "array_check_range",
		"hashmap_keys", "hashmap_lookup", "class_object_new", "class_is_instance",
		"samm_enter_scope", "samm_retain_parent", "fb_context_has_error",
		"memset", "malloc", "free", "fmod", "pow",
	} {
		_, ok := table.Lookup(name)
		require.Truef(t, ok, "missing runtime ABI entry %q", name)
	}
}

func TestFaçadeCallRejectsArityMismatch(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	b := ilbuilder.New()
	f := NewFaçade(table, b)

	ok := f.Call("", "basic_print_int", nil)
	require.False(t, ok)

	ok = f.Call("", "basic_print_int", []ilbuilder.Arg{{Type: "w", Value: "%t0"}})
	require.True(t, ok)
}

func TestStringRetainEmitsCall(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	b := ilbuilder.New()
	f := NewFaçade(table, b)

	out := f.StringRetain(b, "%t0")
	require.Contains(t, b.String(), out+" =l call $string_retain(l %t0)")
}
