// Command conduit is the driver-level CLI surface enumerated in spec.md
// §6: build, run, repl, and test subcommands for integrators working
// against a ConduitExec. None of this is part of the core module; it is
// wiring around it, built with github.com/spf13/cobra the way the pack's
// beam-derived command trees are (cmd/<tool>/main.go delegating to one
// rootCmd per subcommand file).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "conduit",
		Short: "conduit drives a ConduitExec simulation server",
	}
	root.AddCommand(newBuildCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newTestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
