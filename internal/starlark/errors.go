package starlark

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tempy/internal/template"
)

// Sentinel errors for template evaluation failures.
var (
	ErrInvalidEmbeddedCode = errors.New("invalid embedded code")
	ErrUndefinedName       = errors.New("undefined name")
	ErrExecution           = errors.New("template execution failed")
	ErrInvalidArgument     = errors.New("invalid argument")
)

func location(pos template.Position) string {
	switch {
	case pos.Line > 0 && pos.File != "":
		return fmt.Sprintf("%s:%d:%d: ", pos.File, pos.Line, pos.Column)
	case pos.Line > 0:
		return fmt.Sprintf("%d:%d: ", pos.Line, pos.Column)
	case pos.File != "":
		return pos.File + ": "
	default:
		return ""
	}
}

// InvalidCodeError reports embedded code that Starlark cannot parse or resolve.
type InvalidCodeError struct {
	Pos template.Position
	Msg string
	// Source is the assembled Starlark program.
	Source string
	Cause  error
}

func (e *InvalidCodeError) Error() string {
	return location(e.Pos) + "invalid embedded code: " + e.Msg
}

// Unwrap exposes both the sentinel and the underlying Starlark error.
func (e *InvalidCodeError) Unwrap() []error { return []error{ErrInvalidEmbeddedCode, e.Cause} }

// UndefinedNameError reports an identifier bound neither by the template,
// the bindings, nor the environment.
type UndefinedNameError struct {
	Pos  template.Position
	Name string
	// Hint is the evaluator's suggestion, if any.
	Hint  string
	Cause error
}

func (e *UndefinedNameError) Error() string {
	return location(e.Pos) + "undefined name: " + e.Name + e.Hint
}

// Unwrap exposes both the sentinel and the underlying Starlark error.
func (e *UndefinedNameError) Unwrap() []error { return []error{ErrUndefinedName, e.Cause} }

// ExecutionError reports a failure raised while running a template.
type ExecutionError struct {
	Pos       template.Position
	Msg       string
	Backtrace string
	Cause     error
}

func (e *ExecutionError) Error() string {
	return location(e.Pos) + e.Msg
}

// Unwrap exposes both the sentinel and the underlying Starlark error.
func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Cause} }

// ArgumentError reports an unusable signature, binding or option.
type ArgumentError struct {
	Field   string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
