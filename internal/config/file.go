package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// parseFile overlays cfg with the keys present in the file at path. YAML is
// a superset of JSON, so both formats are accepted. Durations are written
// as strings like "30s" or "5m".
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
