// Command qbemit is a thin inspection CLI over the emitter package: it
// drives a handful of built-in fixture programs through EmitProgram/EmitCFG
// and prints the resulting textual SSA IL. It is not a compiler front end —
// there is no lexer or parser here, only hand-built fixtures.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fasterbasic/qbemit/cfgir"
	"github.com/fasterbasic/qbemit/emitter"
	"github.com/fasterbasic/qbemit/internal/fixture"
	"github.com/fasterbasic/qbemit/sema"
)

var sammEnabled bool

var fixtures = map[string]func() (*sema.Table, *cfgir.Graph){
	"hello":     fixture.HelloWorld,
	"countdown": fixture.CountdownLoop,
}

func emitFixture(name string) (string, error) {
	build, ok := fixtures[name]
	if !ok {
		return "", errors.Errorf("unknown fixture %q", name)
	}
	table, graph := build()
	e, err := emitter.New(table, emitter.LoadConfig(sammEnabled))
	if err != nil {
		return "", errors.Wrap(err, "constructing emitter")
	}
	e.EmitProgram(&emitter.Program{TopLevel: graph})
	return e.Output(), nil
}

func runEmit(cmd *cobra.Command, args []string) error {
	name := args[0]
	il, err := emitFixture(name)
	if err != nil {
		return errors.Wrapf(err, "emitting fixture %q", name)
	}
	fmt.Print(il)
	return nil
}

func runList(cmd *cobra.Command, args []string) {
	for name := range fixtures {
		fmt.Println(name)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "qbemit",
		Short: "Inspect the AST-to-IL emitter against built-in fixtures",
		Long:  "qbemit drives the emitter package's fixture programs and prints the generated QBE-style IL",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available fixture programs",
		Run:   runList,
	}

	emitCmd := &cobra.Command{
		Use:   "emit <fixture>",
		Short: "Emit IL for a named fixture program",
		Args:  cobra.ExactArgs(1),
		RunE:  runEmit,
	}
	emitCmd.Flags().BoolVar(&sammEnabled, "samm", true, "wrap top-level main in SAMM enter/shutdown calls")

	rootCmd.AddCommand(listCmd, emitCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
