// Package config loads YAML configuration with environment variable
// expansion, optional validation, and hot reload on file change.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that can check their own
// consistency after decoding.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references against the process
// environment, decodes the YAML into target, and runs Validate when the
// target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

// LoadWithDefaults behaves like Load, falling back to defaultFile when
// filename does not exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile == "" {
			return fmt.Errorf("config file not found: %s", filename)
		}
		return Load(defaultFile, target)
	}
	return Load(filename, target)
}

// MustLoad is Load for startup paths where a broken configuration should
// stop the process.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func decode[T any](filename string, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config %s: %w", filename, err)
		}
	}
	return nil
}
