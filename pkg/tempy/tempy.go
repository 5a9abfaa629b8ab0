package tempy

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/tempy/internal/starlark"
	"github.com/leapstack-labs/tempy/internal/template"
)

// Errors returned by parsing, compiling and rendering. Use errors.Is.
var (
	ErrUnterminatedCodeBlock = template.ErrUnterminatedCodeBlock
	ErrInvalidEmbeddedCode   = starlark.ErrInvalidEmbeddedCode
	ErrUndefinedName         = starlark.ErrUndefinedName
	ErrExecution             = starlark.ErrExecution
	ErrInvalidArgument       = starlark.ErrInvalidArgument
)

// Re-exported types.
type (
	Delimiters                 = template.Config
	Program                    = template.Program
	Instruction                = template.Instruction
	Position                   = template.Position
	UnterminatedCodeBlockError = template.UnterminatedCodeBlockError
	InvalidCodeError           = starlark.InvalidCodeError
	UndefinedNameError         = starlark.UndefinedNameError
	ExecutionError             = starlark.ExecutionError
	ArgumentError              = starlark.ArgumentError
)

// DefaultDelimiters returns the standard markers: <% %>, {{ }}, \ and -.
func DefaultDelimiters() Delimiters { return template.DefaultConfig() }

// Engine parses, compiles and renders templates with fixed settings.
// It is immutable and safe for concurrent use.
type Engine struct {
	parser *template.Parser
	eval   *starlark.Evaluator
	opts   options
	logger *slog.Logger
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.acc == "" {
		o.acc = starlark.DefaultAccumulator
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	parser, err := template.NewParser(o.delims)
	if err != nil {
		return nil, err
	}
	globals, err := starlark.ToStringDict(o.globals)
	if err != nil {
		return nil, err
	}
	eval, err := starlark.NewEvaluator(
		starlark.WithAccumulator(o.acc),
		starlark.WithGlobals(globals),
		starlark.WithMaxSteps(o.maxSteps),
		starlark.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{parser: parser, eval: eval, opts: o, logger: o.logger}, nil
}

// Delimiters returns the markers the engine recognizes.
func (e *Engine) Delimiters() Delimiters { return e.parser.Config() }

// Parse compiles src into its instruction program without evaluating it.
func (e *Engine) Parse(src string) (*Program, error) {
	return e.parse(src, e.opts.filename)
}

func (e *Engine) parse(src, filename string) (*Program, error) {
	prog, err := e.parser.Parse(src, filename)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("parsed template",
		slog.String("template", filename),
		slog.Int("instructions", len(prog.Instructions)))
	return prog, nil
}

// Source returns the Starlark program Render would execute for src.
func (e *Engine) Source(src string) (string, error) {
	prog, err := e.Parse(src)
	if err != nil {
		return "", err
	}
	return e.eval.Source(prog), nil
}

// Check parses src and resolves its names against bindings without
// running it.
func (e *Engine) Check(src string, bindings map[string]any) error {
	return e.CheckFile(src, e.opts.filename, bindings)
}

// CheckFile is Check with an explicit file name for diagnostics.
func (e *Engine) CheckFile(src, filename string, bindings map[string]any) error {
	prog, err := e.parse(src, filename)
	if err != nil {
		return err
	}
	sb, err := starlark.ToStringDict(bindings)
	if err != nil {
		return err
	}
	return e.eval.Check(prog, sb)
}

// Render executes src with bindings and returns the produced text.
func (e *Engine) Render(ctx context.Context, src string, bindings map[string]any) (string, error) {
	vars, err := e.Exec(ctx, src, bindings)
	if err != nil {
		return "", err
	}
	return vars.Output, nil
}

// Result is the outcome of Exec.
type Result struct {
	Output string
	// Vars holds the top-level names the template bound, converted to Go.
	Vars map[string]any
}

// Exec is Render that also returns the top-level names the template bound.
func (e *Engine) Exec(ctx context.Context, src string, bindings map[string]any) (*Result, error) {
	prog, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	sb, err := starlark.ToStringDict(bindings)
	if err != nil {
		return nil, err
	}
	res, err := e.eval.Exec(ctx, prog, sb)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]any, len(res.Globals))
	for name, v := range res.Globals {
		gv, err := starlark.ToGo(v)
		if err != nil {
			gv = v.String()
		}
		vars[name] = gv
	}
	return &Result{Output: res.Output, Vars: vars}, nil
}

// Compile compiles src into a reusable function using the engine's
// signature options.
func (e *Engine) Compile(src string) (*Template, error) {
	prog, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	fn, err := e.eval.Compile(prog, starlark.Signature{
		Name:        e.opts.name,
		Params:      e.opts.params,
		VarArgs:     e.opts.varArgs,
		KwArgs:      e.opts.kwArgs,
		Defaults:    e.opts.defaults,
		Accumulator: e.opts.acc,
	})
	if err != nil {
		return nil, err
	}
	return &Template{fn: fn, prog: prog}, nil
}

// File is a named template source for RenderAll.
type File struct {
	Name   string
	Source string
}

// FileResult is the outcome of rendering one File.
type FileResult struct {
	Name   string
	Output string
	Err    error
}

// RenderAll renders files concurrently with shared bindings, at most limit
// at a time (no limit when limit <= 0). Results keep the order of files.
func (e *Engine) RenderAll(ctx context.Context, files []File, bindings map[string]any, limit int) []FileResult {
	results := make([]FileResult, len(files))

	sb, err := starlark.ToStringDict(bindings)
	if err != nil {
		for i, f := range files {
			results[i] = FileResult{Name: f.Name, Err: err}
		}
		return results
	}

	tasks := make([]starlark.Task, 0, len(files))
	index := make([]int, 0, len(files))
	for i, f := range files {
		prog, err := e.parse(f.Source, f.Name)
		if err != nil {
			results[i] = FileResult{Name: f.Name, Err: err}
			continue
		}
		tasks = append(tasks, starlark.Task{Name: f.Name, Program: prog, Bindings: sb})
		index = append(index, i)
	}

	for j, r := range e.eval.Batch(ctx, tasks, limit) {
		results[index[j]] = FileResult{Name: r.Name, Output: r.Output, Err: r.Err}
	}
	return results
}

// Template is a compiled template function. It may be called concurrently.
type Template struct {
	fn   *starlark.Function
	prog *template.Program
}

// Name returns the function name.
func (t *Template) Name() string { return t.fn.Name() }

// Program returns the parsed instruction program.
func (t *Template) Program() *Program { return t.prog }

// Source returns the generated Starlark function definition.
func (t *Template) Source() string { return t.fn.Source() }

// Call invokes the template with positional and keyword arguments.
func (t *Template) Call(args []any, kwargs map[string]any) (string, error) {
	return t.CallContext(context.Background(), args, kwargs)
}

// CallContext is Call with a context that cancels execution.
func (t *Template) CallContext(ctx context.Context, args []any, kwargs map[string]any) (string, error) {
	return t.fn.Call(ctx, args, kwargs)
}

// Compile compiles src into a reusable function.
func Compile(src string, opts ...Option) (*Template, error) {
	e, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return e.Compile(src)
}

// Render executes src once with bindings and returns the produced text.
func Render(src string, bindings map[string]any, opts ...Option) (string, error) {
	e, err := New(opts...)
	if err != nil {
		return "", err
	}
	return e.Render(context.Background(), src, bindings)
}
