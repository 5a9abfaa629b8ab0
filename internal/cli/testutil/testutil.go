// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/tempy/internal/cli/output"
)

// WriteTemplate writes content to dir/name and returns the path.
func WriteTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

// SetupTestProject creates a temporary project with a config file, a data
// file, a helper module and three templates, and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	WriteTemplate(t, dir, "tempy.yaml", `data: data/site.yaml
helpers: helpers
globals:
  site: Example
`)
	WriteTemplate(t, dir, filepath.Join("data", "site.yaml"), `pages:
  - title: Home
    path: /
  - title: About
    path: /about
`)
	WriteTemplate(t, dir, filepath.Join("pages", "nav.tpl"),
		"<nav>{{for p in pages:}}<a href=\"{{p[\"path\"]}}\">{{p[\"title\"]}}</a>{{end}}</nav>\n")
	WriteTemplate(t, dir, filepath.Join("pages", "title.tpl"), "{{site}}: {{title}}\n")
	WriteTemplate(t, dir, filepath.Join("pages", "shout.tpl"), "{{text.shout(site)}}\n")
	WriteTemplate(t, dir, filepath.Join("helpers", "text.star"), `def shout(s, mark="!"):
    """Upper-cases s."""
    return s.upper() + mark
`)

	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the given TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}
