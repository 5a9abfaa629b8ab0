package starlark

import (
	"context"

	"go.starlark.net/starlark"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tempy/internal/template"
)

// Task is a single render in a batch.
type Task struct {
	Name     string // identifier for this task (used for error reporting)
	Program  *template.Program
	Bindings starlark.StringDict
}

// TaskResult is the outcome of a Task.
type TaskResult struct {
	Name   string
	Output string
	Err    error
}

// Batch renders tasks concurrently, at most limit at a time (no limit when
// limit <= 0). Results are returned in task order; a failing task does not
// stop the others. Bindings are frozen before any task starts since tasks
// may share them.
func (e *Evaluator) Batch(ctx context.Context, tasks []Task, limit int) []TaskResult {
	for _, t := range tasks {
		t.Bindings.Freeze()
	}

	results := make([]TaskResult, len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, t := range tasks {
		g.Go(func() error {
			out, err := e.Render(ctx, t.Program, t.Bindings)
			results[i] = TaskResult{Name: t.Name, Output: out, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
