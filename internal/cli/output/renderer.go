package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Renderer writes command output to out and diagnostics to errOut.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer that styles its output only when both
// writers are terminals.
func NewRenderer(out, errOut io.Writer) *Renderer {
	return NewRendererWithTTY(out, errOut, IsTerminal(out) && IsTerminal(errOut))
}

// NewRendererWithTTY creates a renderer with an explicit terminal flag.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool) *Renderer {
	var lr *lipgloss.Renderer
	if isTTY {
		lr = lipgloss.NewRenderer(errOut)
	} else {
		lr = lipgloss.NewRenderer(errOut, termenv.WithProfile(termenv.Ascii))
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		styles: NewStyles(lr),
	}
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// IsTTY reports whether output is styled.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Error writes "Error: err" to the diagnostics writer.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+err.Error()))
}

// Warn writes a warning to the diagnostics writer.
func (r *Renderer) Warn(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning: "+msg))
}

// Status writes one "ok"/"FAIL" result line to the output.
func (r *Renderer) Status(name string, err error) {
	if err == nil {
		_, _ = fmt.Fprintf(r.out, "%s   %s\n", r.styles.Success.Render("ok"), name)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n     %s\n", r.styles.Error.Render("FAIL"), name, r.styles.Muted.Render(err.Error()))
}
