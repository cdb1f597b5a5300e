// Package config loads the operator's deployment defaults from a YAML file
// under the llmdeploy home directory. Flags always win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries cluster- and operator-specific defaults so the deploy
// command line stays short.
type Config struct {
	// ModelDir is the local HuggingFace-style cache holding model weights.
	ModelDir string `yaml:"modelDir"`
	// Image is the inference server container image (or .sif path).
	Image   string `yaml:"image"`
	Runtime string `yaml:"runtime"` // docker or singularity
	// LoginHost is the cluster login node used in remote-access
	// instructions.
	LoginHost   string `yaml:"loginHost"`
	NotifyEmail string `yaml:"notifyEmail"`
	RemotePort  int    `yaml:"remotePort"`

	// Batch script defaults.
	Partition string `yaml:"partition"`
	Gres      string `yaml:"gres"`
	TimeLimit string `yaml:"timeLimit"`
	Memory    string `yaml:"memory"`
}

// Load decodes the config file. Missing files return a zero config.
func Load(path string) (*Config, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return &Config{}, nil
	}
	expanded, err := expandPath(trimmed)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating parent directories if needed.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0o600)
}

func expandPath(path string) (string, error) {
	switch {
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	case path == "~":
		return os.UserHomeDir()
	case filepath.IsAbs(path):
		return path, nil
	default:
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, path), nil
	}
}
