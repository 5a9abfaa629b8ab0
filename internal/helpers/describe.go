package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/syntax"
)

// Function describes a public function of a helper file.
type Function struct {
	Name      string   `json:"name"`
	Args      []string `json:"args"` // with defaults, like "sep=\", \""
	Docstring string   `json:"docstring"`
	Line      int      `json:"line"`
}

// Namespace describes a helper file without executing it.
type Namespace struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Functions []*Function `json:"functions"`
}

// Describe statically parses every .star file in dir.
func Describe(dir string) ([]*Namespace, error) {
	files, err := starFiles(dir)
	if err != nil {
		return nil, err
	}

	var out []*Namespace
	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec // path comes from a glob of the helpers directory
		if err != nil {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("failed to read file: %v", err), Err: err}
		}
		ns, err := ParseFile(file, content)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, nil
}

// ParseFile extracts the public functions of a helper file from its syntax
// tree. The file is not executed.
func ParseFile(filename string, content []byte) (*Namespace, error) {
	f, err := fileOptions.Parse(filename, content, syntax.RetainComments)
	if err != nil {
		return nil, &LoadError{File: filename, Message: err.Error(), Err: err}
	}

	ns := &Namespace{
		Name: strings.TrimSuffix(filepath.Base(filename), ".star"),
		Path: filename,
	}

	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		ns.Functions = append(ns.Functions, &Function{
			Name:      def.Name.Name,
			Args:      extractArgs(def.Params),
			Docstring: extractDocstring(def.Body),
			Line:      int(def.Name.NamePos.Line),
		})
	}
	return ns, nil
}

func extractArgs(params []syntax.Expr) []string {
	var args []string
	for _, param := range params {
		switch p := param.(type) {
		case *syntax.Ident:
			args = append(args, p.Name)
		case *syntax.BinaryExpr:
			// x=default
			if ident, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
				args = append(args, ident.Name+"="+exprToString(p.Y))
			}
		case *syntax.UnaryExpr:
			ident, ok := p.X.(*syntax.Ident)
			switch {
			case p.Op == syntax.STAR && !ok:
				// bare * separating keyword-only parameters
				args = append(args, "*")
			case p.Op == syntax.STAR:
				args = append(args, "*"+ident.Name)
			case p.Op == syntax.STARSTAR && ok:
				args = append(args, "**"+ident.Name)
			}
		}
	}
	return args
}

// extractDocstring returns the leading string literal of a function body.
func extractDocstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	exprStmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := exprStmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s)
}

func exprToString(expr syntax.Expr) string {
	switch e := expr.(type) {
	case *syntax.Literal:
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.ListExpr:
		return "[]"
	case *syntax.DictExpr:
		return "{}"
	case *syntax.TupleExpr:
		return "()"
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return "-" + exprToString(e.X)
		}
		return exprToString(e.X)
	default:
		return "..."
	}
}
