package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/pkg/tempy"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Source bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect [TEMPLATE]",
		Short: "Show the instruction program of a template",
		Long: `Parse a template and print its instruction program without running it.

Each instruction is a literal, an expression or a statement with the
indentation depth it is emitted at. With --source the generated Starlark
program is printed instead.`,
		Example: `  # Show instructions
  tempy inspect page.tpl

  # Show the generated Starlark program
  tempy inspect --source page.tpl

  # Read from stdin
  echo '{{for x in xs:}}{{x}}{{end}}' | tempy inspect`,
		Args: UsageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runInspect(cmd, path, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Source, "source", false, "Print the generated Starlark program")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, opts *InspectOptions) error {
	c := NewCommandContext(cmd)

	src, name, err := c.ReadTemplate(path)
	if err != nil {
		return err
	}
	eng, err := c.NewEngine(tempy.WithFilename(name))
	if err != nil {
		return err
	}

	if opts.Source {
		code, err := eng.Source(src)
		if err != nil {
			return err
		}
		_, _ = io.WriteString(c.Renderer.Writer(), code)
		return nil
	}

	prog, err := eng.Parse(src)
	if err != nil {
		return err
	}
	renderInstructions(c.Renderer.Writer(), prog)
	return nil
}

func renderInstructions(w io.Writer, prog *tempy.Program) {
	if len(prog.Instructions) == 0 {
		_, _ = fmt.Fprintln(w, "(0 instructions)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Kind", "Indent", "Position", "Text"})

	for i, ins := range prog.Instructions {
		pos := prog.Position(ins.Offset)
		t.AppendRow(table.Row{
			i,
			ins.Kind.String(),
			ins.Indent,
			fmt.Sprintf("%d:%d", pos.Line, pos.Column),
			strconv.Quote(ins.Text),
		})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d instructions)\n", len(prog.Instructions))
}
