package wizard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jfellner/k3seed/internal/config"
)

// WriteFile persists the configuration as YAML. Refuses to overwrite an
// existing file so a stray re-run of init cannot clobber a tuned config.
func WriteFile(cfg *config.Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; delete it first to re-run init", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
