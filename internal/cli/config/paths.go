package config

import (
	"os"
	"path/filepath"
)

func DefaultHomeDir() string {
	if v := os.Getenv("LLMDEPLOY_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".llmdeploy")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultHomeDir(), "config")
}

func DefaultLogDir() string {
	return filepath.Join(DefaultHomeDir(), "logs")
}
