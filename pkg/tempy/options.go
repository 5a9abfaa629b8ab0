package tempy

import (
	"log/slog"

	"github.com/leapstack-labs/tempy/internal/template"
)

type options struct {
	delims   template.Config
	acc      string
	filename string
	logger   *slog.Logger
	maxSteps uint64
	globals  map[string]any

	name     string
	params   []string
	varArgs  string
	kwArgs   string
	defaults []any
}

// Option configures an Engine, Compile or Render.
type Option func(*options)

// WithName sets the name of the compiled function.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithParams sets the positional parameters of the compiled function.
func WithParams(params ...string) Option {
	return func(o *options) { o.params = params }
}

// WithVarArgs names the parameter collecting extra positional arguments.
func WithVarArgs(name string) Option {
	return func(o *options) { o.varArgs = name }
}

// WithKwArgs names the parameter collecting extra keyword arguments.
func WithKwArgs(name string) Option {
	return func(o *options) { o.kwArgs = name }
}

// WithDefaults sets default values for the last len(defaults) parameters.
func WithDefaults(defaults ...any) Option {
	return func(o *options) { o.defaults = defaults }
}

// WithAccumulator sets the name of the output list inside generated code.
func WithAccumulator(name string) Option {
	return func(o *options) { o.acc = name }
}

// WithDelimiters overrides region markers. Empty fields keep their default.
func WithDelimiters(d Delimiters) Option {
	return func(o *options) { o.delims = d }
}

// WithFilename sets the file name used in diagnostics.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithLogger sets the logger for debug output and template print() calls.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxSteps bounds the computation steps of a single execution.
func WithMaxSteps(n uint64) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithGlobals adds values visible to every template, beneath bindings.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) { o.globals = globals }
}
