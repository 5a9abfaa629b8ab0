// Package tempy compiles text templates with embedded Starlark code.
//
// A template mixes literal text with two kinds of code regions:
//   - {{ expr }} appends the string form of expr, or runs a control
//     statement such as {{ for x in items: }} ... {{ end }}
//   - <% code %> runs one or more lines of code verbatim
//
// Templates are rendered directly with Render, or compiled once into a
// reusable function with Compile:
//
//	out, err := tempy.Render("Hello {{name}}!", map[string]any{"name": "World"})
//
//	tmpl, err := tempy.Compile("Hi {{who}}", tempy.WithParams("who"))
//	out, err = tmpl.Call(nil, map[string]any{"who": "Ann"})
//
// An Engine carries delimiters and evaluator settings and may be shared
// across goroutines.
package tempy
