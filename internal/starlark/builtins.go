package starlark

import (
	"maps"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
)

// Environment returns the modules predeclared for every template on top of
// the Starlark universe: json, math and time. The returned dict is fresh
// and may be extended by the caller.
func Environment() starlark.StringDict {
	return starlark.StringDict{
		"json": json.Module,
		"math": math.Module,
		"time": starlarktime.Module,
	}
}

// Predeclared returns the Starlark universe and the environment overlaid
// with globals and then bindings. Later layers shadow earlier ones.
//
// Templates resolve names lazily, so the universe is looked up through this
// dict at run time rather than by the resolver.
func Predeclared(globals, bindings starlark.StringDict) starlark.StringDict {
	out := maps.Clone(starlark.Universe)
	maps.Copy(out, Environment())
	maps.Copy(out, globals)
	maps.Copy(out, bindings)
	return out
}
