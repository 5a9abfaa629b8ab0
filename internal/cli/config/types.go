// Package config provides configuration management for the tempy CLI.
//
// Values are layered with koanf: built-in defaults, then tempy.yaml (or the
// file given with --config), then TEMPY_ environment variables, then flags
// that were explicitly set on the command line.
package config

import (
	"time"

	"github.com/leapstack-labs/tempy/internal/starlark"
	"github.com/leapstack-labs/tempy/internal/template"
)

// Config holds all CLI configuration options.
type Config struct {
	Delimiters  template.Config `koanf:"delimiters"`
	Accumulator string          `koanf:"accumulator"`
	MaxSteps    uint64          `koanf:"max_steps"`
	// Data is a YAML or JSON file whose top-level mapping becomes the
	// template bindings.
	Data string `koanf:"data"`
	// Helpers is a directory of .star files loaded as helper modules.
	Helpers string `koanf:"helpers"`
	// Globals are visible to every template beneath the bindings.
	Globals       map[string]any `koanf:"globals"`
	Verbose       bool           `koanf:"verbose"`
	WatchDebounce time.Duration  `koanf:"watch_debounce"`
	Jobs          int            `koanf:"jobs"`

	// ProjectRoot is the directory relative paths in the config file are
	// resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultAccumulator   = starlark.DefaultAccumulator
	DefaultWatchDebounce = 100 * time.Millisecond
	DefaultJobs          = 8
	EnvPrefix            = "TEMPY_"
)

// configNames are the file names searched for when --config is not given.
var configNames = []string{"tempy.yaml", "tempy.yml"}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Delimiters:    template.DefaultConfig(),
		Accumulator:   DefaultAccumulator,
		WatchDebounce: DefaultWatchDebounce,
		Jobs:          DefaultJobs,
	}
}
