// Package helpers loads directories of Starlark helper modules for templates.
// Each .star file becomes a module named after the file, so a function
// greet in text.star is called as text.greet(...) inside a template.
package helpers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	starctx "github.com/leapstack-labs/tempy/internal/starlark"
)

// fileOptions matches the dialect templates are realized with.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Loader scans a directory for .star files and loads them as Starlark modules.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader for dir. A nil logger discards output.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: dir, logger: logger}
}

// Module is an executed helper file.
type Module struct {
	// Namespace is derived from the file name ("text" for "text.star").
	Namespace string

	// Path is the path of the .star file.
	Path string

	// Exports holds the module's public globals (names not starting with _).
	Exports starlark.StringDict
}

// Load executes every .star file in the directory, sorted by name.
// A missing directory yields no modules.
func (l *Loader) Load() ([]*Module, error) {
	files, err := starFiles(l.dir)
	if err != nil || files == nil {
		return nil, err
	}

	modules := make([]*Module, 0, len(files))
	for _, file := range files {
		module, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded helper module",
			slog.String("namespace", module.Namespace),
			slog.Int("exports", len(module.Exports)))
		modules = append(modules, module)
	}
	return modules, nil
}

// starFiles lists the .star files of dir. It returns nil, nil when dir
// does not exist.
func starFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access helpers directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("helpers path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan helpers directory: %w", err)
	}
	sort.Strings(files)
	if files == nil {
		files = []string{}
	}
	return files, nil
}

func (l *Loader) loadFile(path string) (*Module, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from a glob of the helpers directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if !starctx.IsIdentifier(namespace) {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("%q is not a valid module name", namespace)}
	}

	thread := &starlark.Thread{
		Name: "load:" + namespace,
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Debug("helper print", slog.String("module", namespace), slog.String("msg", msg))
		},
	}

	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, content, starctx.Environment())
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error(), Err: err}
	}

	exports := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = value
		}
	}
	exports.Freeze()

	return &Module{Namespace: namespace, Path: path, Exports: exports}, nil
}

// Value returns the module as a Starlark value whose attributes are its
// exports.
func (m *Module) Value() *starlarkstruct.Module {
	return &starlarkstruct.Module{Name: m.Namespace, Members: m.Exports}
}

// Globals returns the modules keyed by namespace, ready to be predeclared.
func Globals(modules []*Module) map[string]any {
	out := make(map[string]any, len(modules))
	for _, m := range modules {
		out[m.Namespace] = m.Value()
	}
	return out
}

// LoadError reports a helper file that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("helpers/%s: %s", filepath.Base(e.File), e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }
