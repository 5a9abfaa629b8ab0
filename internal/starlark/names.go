package starlark

import (
	"slices"
	"strings"
	"unicode"

	"go.starlark.net/resolve"
	"go.starlark.net/syntax"
)

// boundNames returns the sorted names f binds at any level.
func boundNames(f *syntax.File) []string {
	seen := map[string]bool{}
	var names []string
	syntax.Walk(f, func(n syntax.Node) bool {
		id, ok := n.(*syntax.Ident)
		if !ok || seen[id.Name] {
			return true
		}
		if b, ok := id.Binding.(*resolve.Binding); ok {
			switch b.Scope {
			case resolve.Local, resolve.Cell, resolve.Free, resolve.Global:
				seen[id.Name] = true
				names = append(names, id.Name)
			}
		}
		return true
	})
	slices.Sort(names)
	return names
}

// unboundPrefixes are the starts of the messages Starlark reports when a
// name has no value at run time.
var unboundPrefixes = []string{
	"internal error: predeclared variable ",
	"global variable ",
	"local variable ",
}

// unboundName extracts the name from a run-time unbound-name message.
func unboundName(msg string) (string, bool) {
	for _, p := range unboundPrefixes {
		rest, ok := strings.CutPrefix(msg, p)
		if !ok {
			continue
		}
		name, tail, _ := strings.Cut(rest, " ")
		if tail == "is uninitialized" || tail == "referenced before assignment" {
			return name, true
		}
	}
	return "", false
}

// suggest formats a suggestion for name from candidates, or returns "".
func suggest(name string, candidates []string) string {
	if n := nearest(name, candidates); n != "" {
		return " (did you mean " + n + "?)"
	}
	return ""
}

// nearest returns the candidate closest to x by edit distance, ignoring
// case and underscores, or "" when none is within half the length of x.
func nearest(x string, candidates []string) string {
	fold := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '_' {
				return -1
			}
			return unicode.ToLower(r)
		}, s)
	}

	fx := fold(x)
	var best string
	bestD := (len(fx) + 1) / 2
	for _, c := range candidates {
		if c == x {
			continue
		}
		if d := levenshtein(fx, fold(c)); d < bestD {
			bestD = d
			best = c
		}
	}
	return best
}

func levenshtein(x, y string) int {
	row := make([]int, len(y)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(x); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(y); j++ {
			cost := 1
			if x[i-1] == y[j-1] {
				cost = 0
			}
			cur := min(prev+cost, row[j-1]+1, row[j]+1)
			prev, row[j] = row[j], cur
		}
	}
	return row[len(y)]
}
