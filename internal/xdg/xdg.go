// Package xdg provides XDG Base Directory paths for memberd.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "memberd"

// ConfigDir returns the XDG config directory for memberd.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of config.yaml in ConfigDir if the file
// exists, or "" when there is no user-level configuration.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
