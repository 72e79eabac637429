package config

import (
	"github.com/jfellner/k3seed/internal/errdefs"
)

// Validate checks that every required name is present and non-empty.
//
// It does not short-circuit: all missing names are collected and reported
// together in a single ConfigurationError, so the operator can fix the whole
// batch in one pass.
func (c *Config) Validate() error {
	var missing []string
	for _, name := range RequiredNames() {
		if c.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &errdefs.ConfigurationError{Missing: missing}
	}
	return nil
}
