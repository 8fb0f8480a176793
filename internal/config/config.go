// Package config loads the simulator's ambient settings — log level and
// the retirement-line seq_no column width — from an optional YAML file,
// the way the teacher model's internal/config loaded processor
// parameters. The three positional simulation parameters (rob_size,
// iq_size, width) are not part of this file; they come from the CLI
// per spec §6.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults holds settings that tune the simulator's ambient behavior
// without affecting its architectural semantics.
type Defaults struct {
	LogLevel    string `yaml:"logLevel"`    // zerolog level name: debug, info, warn, error, disabled
	OutputWidth int    `yaml:"outputWidth"` // minimum seq_no column width on retirement lines; 0 means unpadded
}

// LoadDefaults loads ambient defaults from a YAML file at path.
func LoadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading defaults file")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing defaults file")
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid defaults")
	}

	return cfg, nil
}

func validate(cfg *Defaults) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[cfg.LogLevel] {
		return errors.Errorf("unsupported log level: %s", cfg.LogLevel)
	}
	if cfg.OutputWidth < 0 {
		return errors.New("outputWidth must not be negative")
	}
	return nil
}

// DefaultConfig returns the simulator's built-in ambient defaults, used
// whenever no --defaults file is given.
func DefaultConfig() *Defaults {
	return &Defaults{
		LogLevel:    "info",
		OutputWidth: 0,
	}
}
