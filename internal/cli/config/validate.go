package config

import (
	"fmt"

	"github.com/leapstack-labs/tempy/internal/starlark"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Delimiters.WithDefaults().Validate(); err != nil {
		return err
	}
	if c.Accumulator != "" && !starlark.IsIdentifier(c.Accumulator) {
		return fmt.Errorf("accumulator %q is not a valid identifier", c.Accumulator)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	for name := range c.Globals {
		if !starlark.IsIdentifier(name) {
			return fmt.Errorf("global %q is not a valid identifier", name)
		}
	}
	return nil
}
