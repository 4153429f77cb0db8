package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the config file looked up inside a config directory.
const FileName = "config.toml"

// Loaded is a resolved config file together with the values read from it.
// Scripts live next to Path, so the file does not have to exist.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Dir is the directory relative script paths resolve against.
func (l Loaded) Dir() string {
	return filepath.Dir(l.Path)
}

// Load resolves the config path, then reads, parses and validates it.
// An explicit path naming a directory selects FileName inside it.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	if info, statErr := os.Stat(resolvedPath); statErr == nil && info.IsDir() {
		resolvedPath = filepath.Join(resolvedPath, FileName)
	}

	content, err := os.ReadFile(resolvedPath)
	if errors.Is(err, os.ErrNotExist) {
		return Loaded{
			Path:   resolvedPath,
			Config: Default(),
			Warnings: []Warning{{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			}},
		}, nil
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	return Loaded{Path: resolvedPath, Config: cfg, Warnings: warnings, Exists: true}, nil
}
