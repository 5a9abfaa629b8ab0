package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tempy/pkg/tempy"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Run bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check TEMPLATE...",
		Short: "Validate templates without producing output",
		Long: `Parse templates and resolve every name they use against the bindings,
reporting each failure. Templates are checked concurrently.

Without --run nothing is executed, so runtime errors such as a division
by zero are not found. With --run each template is rendered and its
output discarded.`,
		Example: `  # Check a directory of templates against a data file
  tempy check --data site.yaml pages/*.tpl

  # Render them too
  tempy check --run --data site.yaml pages/*.tpl`,
		Args: UsageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Run, "run", false, "Render each template as well")

	return cmd
}

func runCheck(cmd *cobra.Command, paths []string, opts *CheckOptions) error {
	c := NewCommandContext(cmd)

	bindings, err := c.Bindings()
	if err != nil {
		return err
	}
	eng, err := c.NewEngine()
	if err != nil {
		return err
	}

	errs := make([]error, len(paths))
	files := make([]tempy.File, 0, len(paths))
	index := make([]int, 0, len(paths))
	for i, path := range paths {
		src, name, err := c.ReadTemplate(path)
		if err != nil {
			errs[i] = err
			continue
		}
		files = append(files, tempy.File{Name: name, Source: src})
		index = append(index, i)
	}

	if opts.Run {
		for j, res := range eng.RenderAll(cmd.Context(), files, bindings, c.Cfg.Jobs) {
			errs[index[j]] = res.Err
		}
	} else {
		var g errgroup.Group
		if c.Cfg.Jobs > 0 {
			g.SetLimit(c.Cfg.Jobs)
		}
		for j, f := range files {
			g.Go(func() error {
				errs[index[j]] = eng.CheckFile(f.Source, f.Name, bindings)
				return nil
			})
		}
		_ = g.Wait()
	}

	var failed []error
	for i, path := range paths {
		c.Renderer.Status(path, errs[i])
		if errs[i] != nil {
			failed = append(failed, errs[i])
		}
	}
	c.Logger.Debug("checked templates",
		slog.Int("total", len(paths)),
		slog.Int("failed", len(failed)),
		slog.Bool("run", opts.Run))

	if len(failed) > 0 {
		return &CheckError{Failed: len(failed), Total: len(paths), Errs: failed}
	}
	return nil
}
