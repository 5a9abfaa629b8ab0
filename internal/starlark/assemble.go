package starlark

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/tempy/internal/template"
)

// DefaultAccumulator is the name of the output list inside generated code.
const DefaultAccumulator = "_tempy_out"

// emitter lowers literal and expression instructions to appends onto the
// accumulator list.
type emitter struct {
	acc string
	u   *unit
}

// Literal quotes text inline. Starlark string literals cannot hold invalid
// UTF-8, so such text is appended from the literal table instead.
func (e emitter) Literal(text string) string {
	if utf8.ValidString(text) {
		return e.acc + ".append(" + syntax.Quote(text, false) + ")"
	}
	e.u.literals = append(e.u.literals, starlark.String(text))
	return e.acc + ".append(" + literalTable(e.acc) + "[" + strconv.Itoa(len(e.u.literals)-1) + "])"
}

func (e emitter) Expression(src string) string {
	return e.acc + ".append(str((" + src + ")))"
}

// unit is an assembled Starlark file plus the template origin of each line.
type unit struct {
	prog  *template.Program
	lines []string
	// origins[i] is the template offset of line i+1, or -1 for generated lines.
	origins []int
	// literals holds the texts that could not be quoted inline.
	literals starlark.Tuple
	// bound lists the names the program binds, once resolved.
	bound []string
}

// literalTable names the predeclared tuple of literals for accumulator acc.
func literalTable(acc string) string { return acc + "_lit" }

func newUnit(prog *template.Program) *unit {
	return &unit{prog: prog}
}

func (u *unit) add(text string, origin int) {
	for _, l := range strings.Split(text, "\n") {
		u.lines = append(u.lines, l)
		u.origins = append(u.origins, origin)
	}
}

func (u *unit) addGenerated(text string) { u.add(text, -1) }

func (u *unit) addProgram(acc string, depth int) {
	for _, l := range u.prog.Lines(emitter{acc: acc, u: u}, depth) {
		u.add(l.Text, l.Offset)
	}
}

// Source returns the assembled Starlark program.
func (u *unit) Source() string {
	return strings.Join(u.lines, "\n") + "\n"
}

// position maps a position in the assembled program back to the template.
// Generated lines map to the nearest template line above them.
func (u *unit) position(pos syntax.Position) template.Position {
	line := int(pos.Line)
	if line < 1 || line > len(u.origins) {
		return template.Position{File: u.prog.File}
	}
	for i := line - 1; i >= 0; i-- {
		if u.origins[i] >= 0 {
			return u.prog.Position(u.origins[i])
		}
	}
	return template.Position{File: u.prog.File}
}

// predeclare adds the literal table to predeclared. It fails when the table
// name is already taken.
func (u *unit) predeclare(acc string, predeclared starlark.StringDict) error {
	if len(u.literals) == 0 {
		return nil
	}
	name := literalTable(acc)
	if predeclared.Has(name) {
		return &ArgumentError{Field: "binding " + name, Message: "collides with the literal table"}
	}
	u.literals.Freeze()
	predeclared[name] = u.literals
	return nil
}

// renderUnit assembles a program as a top-level file that leaves the joined
// output in the accumulator global.
func renderUnit(prog *template.Program, acc string) *unit {
	u := newUnit(prog)
	u.addGenerated(acc + " = []")
	u.addProgram(acc, 0)
	u.addGenerated(acc + ` = "".join(` + acc + ")")
	return u
}

// functionUnit assembles a program as the body of a function definition.
func functionUnit(prog *template.Program, sig Signature) *unit {
	u := newUnit(prog)
	u.addGenerated("def " + sig.Name + "(" + strings.Join(sig.params(), ", ") + "):")
	u.addGenerated(template.IndentUnit + sig.Accumulator + " = []")
	u.addProgram(sig.Accumulator, 1)
	u.addGenerated(template.IndentUnit + `return "".join(` + sig.Accumulator + ")")
	return u
}
