package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flashjitter/core"
)

// LoadConfig reads a YAML harness configuration. Omitted fields keep the
// values from core.DefaultConfig.
func LoadConfig(path string) (core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (core.Config, error) {
	cfg := core.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return core.Config{}, fmt.Errorf("parse config: %w", err)
	}
	core.ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}
