// Package config resolves, parses, validates, and defaults crabshell configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Script   ScriptConfig   `toml:"script"`
	Hyprland HyprlandConfig `toml:"hyprland"`
	Worker   WorkerConfig   `toml:"worker"`
	Control  ControlConfig  `toml:"control"`
	Log      LogConfig      `toml:"log"`
}

// ScriptConfig selects the entry script and the arguments passed to it.
type ScriptConfig struct {
	Path string   `toml:"path"`
	Args []string `toml:"args"`
}

// HyprlandConfig overrides the session context and tunes the IPC layer.
type HyprlandConfig struct {
	RuntimeDir        string   `toml:"runtime_dir"`
	InstanceSignature string   `toml:"instance_signature"`
	EventBacklog      int      `toml:"event_backlog"`
	RequestAttempts   int      `toml:"request_attempts"`
	RequestTimeout    Duration `toml:"request_timeout"`
	SkipUnknownEvents bool     `toml:"skip_unknown_events"`
}

type WorkerConfig struct {
	NamePrefix string `toml:"name_prefix"`
}

type ControlConfig struct {
	Enable bool `toml:"enable"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration reads Go duration strings such as "2s" or "150ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
