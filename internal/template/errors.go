package template

import (
	"errors"
	"fmt"
)

// ErrUnterminatedCodeBlock is reported when a code region has no end marker.
var ErrUnterminatedCodeBlock = errors.New("unterminated code block")

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

// UnterminatedCodeBlockError indicates a region whose end marker was never found.
type UnterminatedCodeBlockError struct {
	baseError
	// Offset is the byte offset of the region's start marker.
	Offset int
	// Marker is the end marker the scanner was looking for.
	Marker string
}

// NewUnterminatedCodeBlockError creates a new unterminated region error.
func NewUnterminatedCodeBlockError(pos Position, offset int, marker string) *UnterminatedCodeBlockError {
	return &UnterminatedCodeBlockError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("unterminated code block: missing %q", marker)},
		Offset:    offset,
		Marker:    marker,
	}
}

// Is reports whether target is ErrUnterminatedCodeBlock.
func (e *UnterminatedCodeBlockError) Is(target error) bool {
	return target == ErrUnterminatedCodeBlock
}

// ConfigError reports an unusable parser configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid delimiter %s: %s", e.Field, e.Message)
}
