package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tempy/internal/cli/config"
)

// UsageError marks a command-line mistake: a bad flag, argument count or
// --set assignment.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// UsageArgs wraps an argument validator so its failures are usage errors.
func UsageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// Usagef returns a formatted usage error.
func Usagef(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// CheckError reports the templates that failed a check.
type CheckError struct {
	Failed int
	Total  int
	Errs   []error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%d of %d templates failed", e.Failed, e.Total)
}

// Unwrap exposes every failure so errors.Is matches any of them.
func (e *CheckError) Unwrap() []error { return e.Errs }

func isAssignmentError(err error) bool {
	return errors.Is(err, config.ErrInvalidAssignment)
}
