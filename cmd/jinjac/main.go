// Command jinjac drives the core parser/compiler pipeline from the command
// line: it reads a host-type description, resolves and parses a template
// against a filesystem loader, and writes the generated Go source to disk.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/deicod/jinjac/jerr"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		w := colorable.NewColorableStderr()
		fmt.Fprintln(w, jerr.FormatError(err, true))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jinjac",
		Short:         "Compile-time template engine: templates in, Go source out",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd())
	return root
}
