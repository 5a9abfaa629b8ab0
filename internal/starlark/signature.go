package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultFunctionName is the name given to compiled templates by default.
const DefaultFunctionName = "template"

// Signature describes the function a template is compiled into.
type Signature struct {
	Name   string
	Params []string
	// VarArgs and KwArgs name the * and ** parameters; empty omits them.
	VarArgs string
	KwArgs  string
	// Defaults apply to the last len(Defaults) parameters.
	Defaults []any
	// Accumulator names the output list; empty uses the evaluator's.
	Accumulator string
}

func (s Signature) withDefaults(acc string) Signature {
	if s.Name == "" {
		s.Name = DefaultFunctionName
	}
	if s.Accumulator == "" {
		s.Accumulator = acc
	}
	return s
}

func (s Signature) placeholder(i int) string {
	return fmt.Sprintf("%s_default_%d", s.Accumulator, i)
}

// params renders the parameter list, binding defaults to placeholders.
func (s Signature) params() []string {
	out := make([]string, 0, len(s.Params)+2)
	first := len(s.Params) - len(s.Defaults)
	for i, p := range s.Params {
		if i >= first {
			p += "=" + s.placeholder(i-first)
		}
		out = append(out, p)
	}
	if s.VarArgs != "" {
		out = append(out, "*"+s.VarArgs)
	}
	if s.KwArgs != "" {
		out = append(out, "**"+s.KwArgs)
	}
	return out
}

// placeholders converts the default values into predeclared globals.
func (s Signature) placeholders() (starlark.StringDict, error) {
	out := make(starlark.StringDict, len(s.Defaults))
	for i, d := range s.Defaults {
		v, err := GoToStarlark(d)
		if err != nil {
			return nil, &ArgumentError{Field: "default " + s.Params[len(s.Params)-len(s.Defaults)+i], Message: err.Error()}
		}
		out[s.placeholder(i)] = v
	}
	return out, nil
}

// Validate checks the signature against the globals the function will see.
func (s Signature) Validate(globals starlark.StringDict) error {
	if !IsIdentifier(s.Name) {
		return &ArgumentError{Field: "name", Message: fmt.Sprintf("%q is not an identifier", s.Name)}
	}
	if !IsIdentifier(s.Accumulator) {
		return &ArgumentError{Field: "accumulator", Message: fmt.Sprintf("%q is not an identifier", s.Accumulator)}
	}
	if len(s.Defaults) > len(s.Params) {
		return &ArgumentError{
			Field:   "defaults",
			Message: fmt.Sprintf("%d defaults for %d parameters", len(s.Defaults), len(s.Params)),
		}
	}

	names := append([]string{}, s.Params...)
	if s.VarArgs != "" {
		names = append(names, s.VarArgs)
	}
	if s.KwArgs != "" {
		names = append(names, s.KwArgs)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !IsIdentifier(n) {
			return &ArgumentError{Field: "parameter", Message: fmt.Sprintf("%q is not an identifier", n)}
		}
		if seen[n] {
			return &ArgumentError{Field: "parameter", Message: fmt.Sprintf("duplicate parameter %q", n)}
		}
		seen[n] = true
	}

	reserved := map[string]bool{s.Accumulator: true}
	for i := range s.Defaults {
		reserved[s.placeholder(i)] = true
	}
	for _, n := range append(names, s.Name) {
		if reserved[n] {
			return &ArgumentError{Field: "accumulator", Message: fmt.Sprintf("%q collides with a generated name", n)}
		}
	}
	for n := range reserved {
		if globals.Has(n) {
			return &ArgumentError{Field: "accumulator", Message: fmt.Sprintf("%q collides with a global", n)}
		}
	}
	return nil
}

// IsIdentifier reports whether s is a valid Starlark identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	expr, err := (&syntax.FileOptions{}).ParseExpr("", s, 0)
	if err != nil {
		return false
	}
	id, ok := expr.(*syntax.Ident)
	return ok && id.Name == s
}
