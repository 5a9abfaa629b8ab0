package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/internal/cli/output"
	"github.com/leapstack-labs/tempy/pkg/tempy"
)

const (
	replPrompt     = "tempy> "
	replContPrompt = "   ...> "
	replFilename   = "<repl>"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Render templates interactively",
		Long: `Start an interactive session. Each entered line is rendered as a
template against the loaded bindings and the output is printed.

Names a line assigns at top level stay bound for the following lines.
End a line with a backslash to continue the template on the next line.`,
		Example: `  tempy repl --data site.yaml
  tempy> <% n = 3 %>
  tempy> {{for i in range(n):}}{{i}} {{end}}
  0 1 2`,
		Args: UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

func runREPL(cmd *cobra.Command) error {
	c := NewCommandContext(cmd)

	bindings, err := c.Bindings()
	if err != nil {
		return err
	}
	eng, err := c.NewEngine(tempy.WithFilename(replFilename))
	if err != nil {
		return err
	}
	session := newREPLSession(eng, bindings)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	c.Renderer.Println(c.Renderer.Styles().Header.Render("tempy REPL"))
	c.Renderer.Println("Type :help for commands, :quit to exit")
	c.Renderer.Println()

	var pending strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if pending.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if quit := session.command(strings.TrimSpace(line), c.Renderer); quit {
				break
			}
			continue
		}

		// A trailing backslash continues the template on the next line.
		if body, ok := strings.CutSuffix(line, `\`); ok {
			pending.WriteString(body)
			pending.WriteString("\n")
			rl.SetPrompt(replContPrompt)
			continue
		}
		pending.WriteString(line)
		src := pending.String()
		pending.Reset()
		rl.SetPrompt(replPrompt)

		if strings.TrimSpace(src) == "" {
			continue
		}
		out, err := session.eval(cmd.Context(), src)
		if err != nil {
			c.Renderer.Error(err)
			continue
		}
		if out != "" {
			c.Renderer.Printf("%s", out)
			if !strings.HasSuffix(out, "\n") {
				c.Renderer.Println()
			}
		}
	}

	return nil
}

// replSession renders lines against bindings that accumulate the names each
// line assigns.
type replSession struct {
	eng     *tempy.Engine
	initial map[string]any
	vars    map[string]any
}

func newREPLSession(eng *tempy.Engine, bindings map[string]any) *replSession {
	return &replSession{
		eng:     eng,
		initial: maps.Clone(bindings),
		vars:    maps.Clone(bindings),
	}
}

func (s *replSession) eval(ctx context.Context, src string) (string, error) {
	if s.vars == nil {
		s.vars = make(map[string]any)
	}
	res, err := s.eng.Exec(ctx, src, s.vars)
	if err != nil {
		return "", err
	}
	maps.Copy(s.vars, res.Vars)
	return res.Output, nil
}

// command handles a colon command and reports whether the session ends.
func (s *replSession) command(line string, r *output.Renderer) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ":quit", ":exit":
		return true

	case ":help":
		printREPLHelp(r.Writer())

	case ":vars":
		if len(s.vars) == 0 {
			r.Println("(no bindings)")
			return false
		}
		for _, name := range slices.Sorted(maps.Keys(s.vars)) {
			r.Printf("%s = %v\n", r.Styles().Bold.Render(name), s.vars[name])
		}

	case ":reset":
		s.vars = maps.Clone(s.initial)
		r.Println("bindings reset")

	case ":source":
		if len(parts) < 2 {
			r.Error(errors.New("usage: :source TEMPLATE"))
			return false
		}
		code, err := s.eng.Source(strings.TrimSpace(strings.TrimPrefix(line, parts[0])))
		if err != nil {
			r.Error(err)
			return false
		}
		r.Printf("%s", code)

	default:
		r.Error(fmt.Errorf("unknown command: %s (type :help for commands)", parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  :help             Show this help message
  :vars             List the current bindings
  :reset            Restore the bindings the session started with
  :source TEMPLATE  Show the Starlark program generated for TEMPLATE
  :quit / :exit     Exit the REPL

Tips:
  - End a line with \ to continue the template on the next line
  - Names assigned in <% %> blocks stay bound for later lines
  - Functions defined in a line can be called from later lines
`
	_, _ = fmt.Fprintln(w, help)
}

// historyFile returns the REPL history path, or "" to disable history.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "tempy")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// newCommandCompleter creates a readline completer for colon commands.
func newCommandCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(":help"),
		readline.PcItem(":vars"),
		readline.PcItem(":reset"),
		readline.PcItem(":source"),
		readline.PcItem(":quit"),
		readline.PcItem(":exit"),
	)
}
