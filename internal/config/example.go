package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExampleYAML renders the default configuration with a placeholder secret
func ExampleYAML() ([]byte, error) {
	cfg := getDefaultConfig()
	cfg.Auth.JWT.Secret = "change-me"
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render example config: %w", err)
	}
	return data, nil
}
