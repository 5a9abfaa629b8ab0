package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/internal/helpers"
)

// HelpersOptions holds options for the helpers command.
type HelpersOptions struct {
	JSON bool
}

// NewHelpersCommand creates the helpers command.
func NewHelpersCommand() *cobra.Command {
	opts := &HelpersOptions{}

	cmd := &cobra.Command{
		Use:   "helpers",
		Short: "List the functions of the helper modules",
		Long: `List the public functions defined by the .star files of the helpers
directory (--helpers or "helpers" in tempy.yaml). Every file is a module
named after the file: greet in text.star is called as text.greet(...).

The files are parsed, not executed.`,
		Example: `  tempy --helpers helpers helpers
  tempy helpers --json`,
		Args: UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHelpers(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the listing as JSON")

	return cmd
}

func runHelpers(cmd *cobra.Command, opts *HelpersOptions) error {
	c := NewCommandContext(cmd)
	if c.Cfg.Helpers == "" {
		return Usagef("no helpers directory configured (use --helpers or set helpers in tempy.yaml)")
	}

	namespaces, err := helpers.Describe(c.Cfg.Helpers)
	if err != nil {
		return err
	}

	if opts.JSON {
		if namespaces == nil {
			namespaces = []*helpers.Namespace{}
		}
		enc := json.NewEncoder(c.Renderer.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(namespaces)
	}

	renderHelpers(c.Renderer.Writer(), namespaces)
	return nil
}

func renderHelpers(w io.Writer, namespaces []*helpers.Namespace) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Function", "Line", "Doc"})

	n := 0
	for _, ns := range namespaces {
		for _, fn := range ns.Functions {
			doc, _, _ := strings.Cut(fn.Docstring, "\n")
			t.AppendRow(table.Row{
				fmt.Sprintf("%s.%s(%s)", ns.Name, fn.Name, strings.Join(fn.Args, ", ")),
				fn.Line,
				doc,
			})
			n++
		}
	}

	if n == 0 {
		_, _ = fmt.Fprintln(w, "(0 functions)")
		return
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d functions)\n", n)
}
