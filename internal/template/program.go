// Package template compiles template sources with {{ inline }} regions and
// <% block %> regions into a flat, indented program of primitive instructions.
package template

import (
	"strings"
	"unicode/utf8"
)

// IndentUnit is the indentation emitted per nesting level.
const IndentUnit = "  "

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// OpKind identifies a primitive program instruction.
type OpKind int

// OpKind constants for program instructions.
const (
	OpLiteral    OpKind = iota // append literal text
	OpExpression               // append the string form of an expression
	OpStatement                // execute a raw statement line
)

func (k OpKind) String() string {
	switch k {
	case OpLiteral:
		return "literal"
	case OpExpression:
		return "expression"
	case OpStatement:
		return "statement"
	default:
		return "unknown"
	}
}

// Instruction is one step of a compiled template.
type Instruction struct {
	Kind OpKind
	// Text is the exact literal, the expression source, or the statement source.
	Text string
	// Indent is the nesting depth the instruction is emitted at.
	Indent int
	// Offset is the byte offset in the template source the instruction came from.
	Offset int
}

// Program is the ordered instruction sequence of a parsed template.
type Program struct {
	Instructions []Instruction
	Source       string
	File         string
}

// Position converts a byte offset in the template source to a line and column.
func (p *Program) Position(offset int) Position {
	if offset > len(p.Source) {
		offset = len(p.Source)
	}
	if offset < 0 {
		offset = 0
	}
	head := p.Source[:offset]
	line := strings.Count(head, "\n") + 1
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return Position{
		File:   p.File,
		Line:   line,
		Column: utf8.RuneCountInString(head[lineStart:]) + 1,
	}
}

// Emitter lowers literal and expression instructions to host statements.
// Statement instructions are emitted verbatim.
type Emitter interface {
	Literal(text string) string
	Expression(src string) string
}

// Line is one line of an assembled program.
type Line struct {
	Text string
	// Offset is the template offset the line came from.
	Offset int
}

// Lines renders the program with each instruction indented at its depth
// plus the given base depth.
func (p *Program) Lines(e Emitter, depth int) []Line {
	lines := make([]Line, 0, len(p.Instructions))
	for _, in := range p.Instructions {
		var text string
		switch in.Kind {
		case OpLiteral:
			text = e.Literal(in.Text)
		case OpExpression:
			text = e.Expression(in.Text)
		default:
			text = in.Text
		}
		lines = append(lines, Line{
			Text:   strings.Repeat(IndentUnit, depth+in.Indent) + text,
			Offset: in.Offset,
		})
	}
	return lines
}
