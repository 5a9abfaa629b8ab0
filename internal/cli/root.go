// Package cli provides the command-line interface for tempy.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/internal/cli/commands"
	"github.com/leapstack-labs/tempy/internal/cli/config"
	"github.com/leapstack-labs/tempy/internal/cli/output"
	"github.com/leapstack-labs/tempy/pkg/tempy"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitTemplate = 3
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// RenderOptions holds the options of the root render command.
type RenderOptions struct {
	Output string
	Watch  bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	opts := &RenderOptions{}

	rootCmd := &cobra.Command{
		Use:   "tempy [flags] [TEMPLATE]",
		Short: "tempy - template compiler with embedded Starlark",
		Long: `tempy renders text templates that mix literal text with embedded code.

  {{ expr }}              insert the value of an expression
  {{ for x in xs: }}...{{ end }}
                          inline control flow
  <% statements %>        run a block of Starlark statements
  \{{ or \<%              keep a start marker literally
  {{- and -}}             trim whitespace next to a region

TEMPLATE is read from the file given, or from stdin when it is "-" or
omitted. Bindings come from --data (YAML or JSON) and --set NAME=VALUE.

Exit status is 0 on success, 1 on I/O or configuration failures, 2 on
usage errors and 3 on template errors.`,
		Example: `  # Render a file with bindings from a data file
  tempy --data site.yaml page.tpl

  # Render stdin with a single binding
  echo 'Hello {{name}}!' | tempy --set name=World

  # Re-render into a file whenever the template changes
  tempy --watch -o index.html index.tpl`,
		Version: Version,
		Args:    commands.UsageArgs(cobra.MaximumNArgs(1)),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", slog.String("path", configFile))
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runRender(cmd, path, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &commands.UsageError{Err: err}
	})

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: tempy.yaml in this or a parent directory)")
	pf.String("data", "", "YAML or JSON file with template bindings")
	pf.String("helpers", "", "Directory of .star helper modules available to templates")
	pf.StringArray("set", nil, "Bind NAME to VALUE (repeatable, VALUE is parsed as YAML)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.Uint64("max-steps", 0, "Abort a render after this many evaluation steps (0 = no limit)")
	pf.String("accumulator", "", "Name of the output list in generated code")
	pf.IntP("jobs", "j", config.DefaultJobs, "Templates rendered concurrently by check")

	// Render flags
	rootCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write output to FILE instead of stdout")
	rootCmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-render whenever TEMPLATE changes")
	rootCmd.Flags().Duration("watch-debounce", config.DefaultWatchDebounce, "Quiet period before re-rendering in watch mode")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewHelpersCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

func runRender(cmd *cobra.Command, path string, opts *RenderOptions) error {
	c := commands.NewCommandContext(cmd)

	if opts.Watch && (path == "" || path == "-") {
		return commands.Usagef("--watch needs a TEMPLATE file")
	}

	bindings, err := c.Bindings()
	if err != nil {
		return err
	}

	render := func() error {
		src, name, err := c.ReadTemplate(path)
		if err != nil {
			return err
		}
		eng, err := c.NewEngine(tempy.WithFilename(name))
		if err != nil {
			return err
		}
		out, err := eng.Render(cmd.Context(), src, bindings)
		if err != nil {
			return err
		}
		return writeOutput(cmd, opts.Output, out)
	}

	if !opts.Watch {
		return render()
	}

	w, err := commands.NewWatcher(path, c.Cfg.WatchDebounce, c.Logger)
	if err != nil {
		return err
	}
	if err := render(); err != nil {
		c.Renderer.Error(err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", path)

	return w.Run(cmd.Context(), func() {
		if err := render(); err != nil {
			c.Renderer.Error(err)
			return
		}
		c.Logger.Info("rendered", slog.String("template", path), slog.String("output", opts.Output))
	})
}

// writeOutput writes out to stdout, or atomically replaces path.
func writeOutput(cmd *cobra.Command, path, out string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(out)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	var usage *commands.UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, tempy.ErrUnterminatedCodeBlock),
		errors.Is(err, tempy.ErrInvalidEmbeddedCode),
		errors.Is(err, tempy.ErrUndefinedName),
		errors.Is(err, tempy.ErrExecution):
		return ExitTemplate
	default:
		return ExitFailure
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.NewRenderer(os.Stdout, os.Stderr).Error(err)
		return ExitCode(err)
	}
	return ExitOK
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tempy.

To load completions:

Bash:
  $ source <(tempy completion bash)

Zsh:
  $ tempy completion zsh > "${fpath[1]}/_tempy"

Fish:
  $ tempy completion fish | source

PowerShell:
  PS> tempy completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  commands.UsageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
