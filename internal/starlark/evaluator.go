package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/tempy/internal/template"
)

// defaultFilename names programs whose template has no file name.
const defaultFilename = "<string>"

// fileOptions enables the Python features templates rely on: top-level
// loops and conditionals, rebinding globals, while loops and recursion.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Evaluator realizes template programs as Starlark code and executes them.
// An Evaluator is immutable after construction and safe for concurrent use;
// every execution runs on its own thread.
type Evaluator struct {
	acc      string
	globals  starlark.StringDict
	maxSteps uint64
	logger   *slog.Logger
}

// Option is a functional option for configuring an Evaluator.
type Option func(*Evaluator)

// WithAccumulator sets the name of the output list inside generated code.
func WithAccumulator(name string) Option {
	return func(e *Evaluator) {
		e.acc = name
	}
}

// WithGlobals adds values visible to every template. The values are frozen
// so that concurrent executions cannot mutate them.
func WithGlobals(globals starlark.StringDict) Option {
	return func(e *Evaluator) {
		e.globals = globals
	}
}

// WithMaxSteps bounds the Starlark computation steps of one execution.
// Zero means no limit.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) {
		e.maxSteps = n
	}
}

// WithLogger sets the logger for debug output and template print() calls.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		acc:    DefaultAccumulator,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.globals.Freeze()

	if !IsIdentifier(e.acc) {
		return nil, &ArgumentError{Field: "accumulator", Message: fmt.Sprintf("%q is not an identifier", e.acc)}
	}
	if e.globals.Has(e.acc) {
		return nil, &ArgumentError{Field: "accumulator", Message: fmt.Sprintf("%q collides with a global", e.acc)}
	}
	return e, nil
}

// Accumulator returns the name of the output list.
func (e *Evaluator) Accumulator() string { return e.acc }

// Result is the outcome of executing a template at top level.
type Result struct {
	Output string
	// Globals holds the top-level names the template bound, excluding the
	// accumulator.
	Globals starlark.StringDict
}

// Source returns the Starlark program Render executes for prog.
func (e *Evaluator) Source(prog *template.Program) string {
	return renderUnit(prog, e.acc).Source()
}

// Check realizes prog without running it, reporting invalid code and names
// bound neither by the template, the bindings, nor the environment. Unlike
// Render, Check reports names on branches that would never run.
func (e *Evaluator) Check(prog *template.Program, bindings starlark.StringDict) error {
	_, err := e.realize(prog, bindings, true)
	return err
}

// Render executes prog with bindings and returns the produced text.
func (e *Evaluator) Render(ctx context.Context, prog *template.Program, bindings starlark.StringDict) (string, error) {
	res, err := e.Exec(ctx, prog, bindings)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Exec executes prog with bindings and returns the produced text together
// with the top-level names the template bound.
func (e *Evaluator) Exec(ctx context.Context, prog *template.Program, bindings starlark.StringDict) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := e.realize(prog, bindings, false)
	if err != nil {
		return nil, err
	}

	thread, stop := e.newThread(ctx, r.unit.filename())
	defer stop()

	globals, err := r.program.Init(thread, r.predeclared)
	if err != nil {
		return nil, r.unit.execError(err)
	}

	out, ok := globals[e.acc].(starlark.String)
	if !ok {
		return nil, &ExecutionError{
			Pos: template.Position{File: prog.File},
			Msg: fmt.Sprintf("%s was rebound to %s", e.acc, typeName(globals[e.acc])),
		}
	}
	delete(globals, e.acc)
	return &Result{Output: string(out), Globals: globals}, nil
}

// realized is a program ready to run.
type realized struct {
	unit        *unit
	program     *starlark.Program
	predeclared starlark.StringDict
}

// realize compiles prog. A strict realization rejects names that are not
// bound anywhere; otherwise they fail only when evaluated.
func (e *Evaluator) realize(prog *template.Program, bindings starlark.StringDict, strict bool) (*realized, error) {
	if bindings.Has(e.acc) {
		return nil, &ArgumentError{Field: "binding " + e.acc, Message: "collides with the accumulator"}
	}

	u := renderUnit(prog, e.acc)
	predeclared := Predeclared(e.globals, bindings)
	if err := u.predeclare(e.acc, predeclared); err != nil {
		return nil, err
	}
	p, err := u.compile(predeclared, strict)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("realized program",
		slog.String("template", u.filename()),
		slog.Int("instructions", len(prog.Instructions)),
		slog.Int("lines", len(u.lines)))
	return &realized{unit: u, program: p, predeclared: predeclared}, nil
}

// Compile realizes prog as a function with the given signature.
func (e *Evaluator) Compile(prog *template.Program, sig Signature) (*Function, error) {
	sig = sig.withDefaults(e.acc)
	if err := sig.Validate(e.globals); err != nil {
		return nil, err
	}
	defaults, err := sig.placeholders()
	if err != nil {
		return nil, err
	}

	u := functionUnit(prog, sig)
	predeclared := Predeclared(e.globals, defaults)
	if err := u.predeclare(sig.Accumulator, predeclared); err != nil {
		return nil, err
	}
	p, err := u.compile(predeclared, false)
	if err != nil {
		return nil, err
	}

	thread, stop := e.newThread(context.Background(), sig.Name)
	defer stop()

	globals, err := p.Init(thread, predeclared)
	if err != nil {
		return nil, u.execError(err)
	}
	fn, ok := globals[sig.Name].(*starlark.Function)
	if !ok {
		return nil, &InvalidCodeError{
			Pos:    template.Position{File: prog.File},
			Msg:    fmt.Sprintf("%s is not a function", sig.Name),
			Source: u.Source(),
		}
	}

	// Calls may run concurrently; nothing they share may be mutated.
	defaults.Freeze()
	globals.Freeze()

	e.logger.Debug("compiled template",
		slog.String("template", u.filename()),
		slog.String("function", sig.Name),
		slog.Int("params", len(sig.Params)))
	return &Function{fn: fn, unit: u, eval: e}, nil
}

// newThread creates a thread for one execution. The returned stop function
// releases the context watch.
func (e *Evaluator) newThread(ctx context.Context, name string) (*starlark.Thread, func() bool) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug("template print", slog.String("template", name), slog.String("msg", msg))
		},
	}
	if e.maxSteps > 0 {
		thread.SetMaxExecutionSteps(e.maxSteps)
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, stop
}

func (u *unit) filename() string {
	if u.prog.File != "" {
		return u.prog.File
	}
	return defaultFilename
}

// compile resolves and compiles the unit against predeclared.
func (u *unit) compile(predeclared starlark.StringDict, strict bool) (*starlark.Program, error) {
	isPredeclared := func(string) bool { return true }
	if strict {
		isPredeclared = predeclared.Has
	}
	f, p, err := starlark.SourceProgramOptions(fileOptions, u.filename(), u.Source(), isPredeclared)
	if err != nil {
		return nil, u.classify(err)
	}
	u.bound = boundNames(f)
	return p, nil
}

// classify converts a Starlark scan, parse or resolve error.
func (u *unit) classify(err error) error {
	var rerrs resolve.ErrorList
	if errors.As(err, &rerrs) && len(rerrs) > 0 {
		first := rerrs[0]
		if name, hint, ok := undefinedName(first.Msg); ok {
			return &UndefinedNameError{Pos: u.position(first.Pos), Name: name, Hint: hint, Cause: err}
		}
		return &InvalidCodeError{Pos: u.position(first.Pos), Msg: first.Msg, Source: u.Source(), Cause: err}
	}

	var serr syntax.Error
	if errors.As(err, &serr) {
		return &InvalidCodeError{Pos: u.position(serr.Pos), Msg: serr.Msg, Source: u.Source(), Cause: err}
	}
	return &InvalidCodeError{Pos: template.Position{File: u.prog.File}, Msg: err.Error(), Source: u.Source(), Cause: err}
}

// execError converts a runtime failure, locating the innermost frame that
// belongs to the template. Names without a value become undefined-name
// errors.
func (u *unit) execError(err error) error {
	var eerr *starlark.EvalError
	if !errors.As(err, &eerr) {
		return &ExecutionError{Pos: template.Position{File: u.prog.File}, Msg: err.Error(), Cause: err}
	}

	pos := template.Position{File: u.prog.File}
	for i := range eerr.CallStack {
		fr := eerr.CallStack.At(i)
		if fr.Pos.IsValid() && fr.Pos.Filename() == u.filename() {
			pos = u.position(fr.Pos)
			break
		}
	}
	if name, ok := unboundName(eerr.Msg); ok {
		return &UndefinedNameError{Pos: pos, Name: name, Hint: suggest(name, u.bound), Cause: err}
	}
	return &ExecutionError{Pos: pos, Msg: eerr.Msg, Backtrace: eerr.Backtrace(), Cause: err}
}

// undefinedName extracts the name and hint from a resolver message such as
// `undefined: nme (did you mean name?)`.
func undefinedName(msg string) (name, hint string, ok bool) {
	rest, ok := strings.CutPrefix(msg, "undefined: ")
	if !ok {
		return "", "", false
	}
	name, hint, found := strings.Cut(rest, " ")
	if found {
		hint = " " + hint
	}
	return name, hint, true
}

func typeName(v starlark.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Type()
}
