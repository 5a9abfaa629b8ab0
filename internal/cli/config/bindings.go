package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tempy/internal/starlark"
)

// ErrInvalidAssignment is returned for a malformed --set value.
var ErrInvalidAssignment = errors.New("invalid assignment")

// LoadData reads a YAML or JSON file whose top level is a mapping.
func LoadData(path string) (map[string]any, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	for name := range data {
		if !starlark.IsIdentifier(name) {
			return nil, fmt.Errorf("data file %s: key %q is not a valid identifier", path, name)
		}
	}
	return data, nil
}

// ParseSet parses a NAME=VALUE assignment. VALUE is read as a YAML scalar or
// flow collection, so n=3 binds an int and tags=[a, b] a list; anything that
// does not parse is kept as a string.
func ParseSet(assignment string) (string, any, error) {
	name, raw, ok := strings.Cut(assignment, "=")
	if !ok {
		return "", nil, fmt.Errorf("%w %q: expected NAME=VALUE", ErrInvalidAssignment, assignment)
	}
	name = strings.TrimSpace(name)
	if !starlark.IsIdentifier(name) {
		return "", nil, fmt.Errorf("%w %q: %q is not a valid identifier", ErrInvalidAssignment, assignment, name)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		value = raw
	}
	return name, value, nil
}

// Bindings merges the data file (if any) with --set assignments, later
// assignments winning.
func (c *Config) Bindings(sets []string) (map[string]any, error) {
	bindings := make(map[string]any)
	if c.Data != "" {
		data, err := LoadData(c.Data)
		if err != nil {
			return nil, err
		}
		maps.Copy(bindings, data)
	}
	for _, s := range sets {
		name, value, err := ParseSet(s)
		if err != nil {
			return nil, err
		}
		bindings[name] = value
	}
	return bindings, nil
}
