package commands

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/internal/cli/config"
	"github.com/leapstack-labs/tempy/internal/cli/output"
	"github.com/leapstack-labs/tempy/internal/helpers"
	"github.com/leapstack-labs/tempy/pkg/tempy"
)

// StdinName is the file name reported for templates read from stdin.
const StdinName = "<stdin>"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	cmd      *cobra.Command
}

// NewCommandContext collects the config and logger stored by the root
// command and a renderer bound to cmd's writers.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:      config.GetConfig(cmd.Context()),
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		cmd:      cmd,
	}
}

// NewEngine builds a template engine from the configuration. opts are
// applied after the configured ones.
func (c *CommandContext) NewEngine(opts ...tempy.Option) (*tempy.Engine, error) {
	globals, err := c.Globals()
	if err != nil {
		return nil, err
	}
	base := []tempy.Option{
		tempy.WithDelimiters(c.Cfg.Delimiters),
		tempy.WithAccumulator(c.Cfg.Accumulator),
		tempy.WithMaxSteps(c.Cfg.MaxSteps),
		tempy.WithGlobals(globals),
		tempy.WithLogger(c.Logger),
	}
	return tempy.New(append(base, opts...)...)
}

// Globals merges the configured globals with the modules of the helpers
// directory. A module may not shadow a configured global.
func (c *CommandContext) Globals() (map[string]any, error) {
	if c.Cfg.Helpers == "" {
		return c.Cfg.Globals, nil
	}

	if _, err := os.Stat(c.Cfg.Helpers); os.IsNotExist(err) {
		c.Renderer.Warn(fmt.Sprintf("helpers directory %s does not exist", c.Cfg.Helpers))
		return c.Cfg.Globals, nil
	}
	modules, err := helpers.NewLoader(c.Cfg.Helpers, c.Logger).Load()
	if err != nil {
		return nil, err
	}
	globals := make(map[string]any, len(c.Cfg.Globals)+len(modules))
	maps.Copy(globals, c.Cfg.Globals)
	for name, mod := range helpers.Globals(modules) {
		if _, ok := globals[name]; ok {
			return nil, fmt.Errorf("helper module %q collides with a configured global", name)
		}
		globals[name] = mod
	}
	return globals, nil
}

// Bindings loads the data file and --set assignments. A malformed
// assignment is reported as a usage error.
func (c *CommandContext) Bindings() (map[string]any, error) {
	var sets []string
	if c.cmd.Flags().Lookup("set") != nil {
		sets, _ = c.cmd.Flags().GetStringArray("set")
	}
	bindings, err := c.Cfg.Bindings(sets)
	if err != nil {
		if isAssignmentError(err) {
			return nil, &UsageError{Err: err}
		}
		return nil, err
	}
	c.Logger.Debug("loaded bindings", slog.Int("count", len(bindings)), slog.String("data", c.Cfg.Data))
	return bindings, nil
}

// ReadTemplate reads the template at path, or stdin when path is "" or "-".
// It returns the source and the name used in diagnostics.
func (c *CommandContext) ReadTemplate(path string) (string, string, error) {
	if path == "" || path == "-" {
		in := c.cmd.InOrStdin()
		if output.IsTerminal(in) {
			_, _ = fmt.Fprintln(c.cmd.ErrOrStderr(), "Reading template from stdin (Ctrl-D to end)")
		}
		src, err := io.ReadAll(in)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(src), StdinName, nil
	}

	src, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		return "", "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(src), path, nil
}
