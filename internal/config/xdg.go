// Package config provides XDG path helpers.
package config

import (
	"errors"
	"os"
	"path/filepath"
)

// DataRootEnv names the environment variable holding the sample root.
const DataRootEnv = "DATAROOT"

// ErrDataRootUnset is returned when DATAROOT is missing or empty.
var ErrDataRootUnset = errors.New(DataRootEnv + " not defined")

// DataRoot returns the directory holding one subdirectory per sample.
func DataRoot() (string, error) {
	v := os.Getenv(DataRootEnv)
	if v == "" {
		return "", ErrDataRootUnset
	}
	return v, nil
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the catalog database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "samplecat", "catalog.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "samplecat", "config.toml")
}
