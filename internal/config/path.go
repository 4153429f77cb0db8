package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.toml location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "crabshell", FileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "crabshell", FileName), nil
}

// ScriptPath resolves the script to run. An explicit override wins over
// script.path; relative paths live next to the config file.
func (l Loaded) ScriptPath(override string) string {
	path := strings.TrimSpace(override)
	if path == "" {
		path = strings.TrimSpace(l.Config.Script.Path)
	}
	if path == "" {
		path = DefaultScript
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Dir(), path)
}
