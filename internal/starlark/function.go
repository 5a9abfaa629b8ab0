package starlark

import (
	"context"
	"fmt"
	"slices"

	"go.starlark.net/starlark"
)

// Function is a template compiled into a Starlark function.
// It is frozen and may be called concurrently.
type Function struct {
	fn   *starlark.Function
	unit *unit
	eval *Evaluator
}

// Name returns the declared function name.
func (f *Function) Name() string { return f.fn.Name() }

// Source returns the assembled Starlark definition.
func (f *Function) Source() string { return f.unit.Source() }

// Call invokes the function and returns the produced text.
func (f *Function) Call(ctx context.Context, args []any, kwargs map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		v, err := GoToStarlark(a)
		if err != nil {
			return "", &ArgumentError{Field: fmt.Sprintf("argument %d", i), Message: err.Error()}
		}
		sargs[i] = v
	}

	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	slices.Sort(names)

	skw := make([]starlark.Tuple, 0, len(kwargs))
	for _, k := range names {
		v, err := GoToStarlark(kwargs[k])
		if err != nil {
			return "", &ArgumentError{Field: "argument " + k, Message: err.Error()}
		}
		skw = append(skw, starlark.Tuple{starlark.String(k), v})
	}

	thread, stop := f.eval.newThread(ctx, f.fn.Name())
	defer stop()

	v, err := starlark.Call(thread, f.fn, sargs, skw)
	if err != nil {
		return "", f.unit.execError(err)
	}
	s, ok := v.(starlark.String)
	if !ok {
		return "", &ExecutionError{Msg: fmt.Sprintf("%s returned %s, want string", f.fn.Name(), v.Type())}
	}
	return string(s), nil
}
