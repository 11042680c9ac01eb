package application

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidOverride reports a malformed LABEL_OVERRIDES entry.
var ErrInvalidOverride = errors.New("labels: invalid override")

// Config defines label catalog configuration.
type Config struct {
	Overrides map[string]string `yaml:"overrides"`
}

// LoadConfig loads config from the LABELS_CONFIG yaml file, then merges
// LABEL_OVERRIDES ("Key=Label,Key2=Label2") on top.
func LoadConfig() (Config, error) {
	cfg := Config{Overrides: map[string]string{}}

	if path := os.Getenv("LABELS_CONFIG"); path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	envOverrides, err := ParseOverrides(os.Getenv("LABEL_OVERRIDES"))
	if err != nil {
		return cfg, err
	}
	for key, label := range envOverrides {
		cfg.Overrides[key] = label
	}
	return cfg, nil
}

// LoadConfigFile reads a yaml label config.
func LoadConfigFile(path string) (Config, error) {
	cfg := Config{Overrides: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("labels: parse %s: %w", path, err)
	}
	if cfg.Overrides == nil {
		cfg.Overrides = map[string]string{}
	}
	return cfg, nil
}

// ParseOverrides parses "Key=Label,Key2=Label2".
func ParseOverrides(value string) (map[string]string, error) {
	result := map[string]string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, label, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		label = strings.TrimSpace(label)
		if !ok || key == "" || label == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOverride, part)
		}
		result[key] = label
	}
	return result, nil
}
