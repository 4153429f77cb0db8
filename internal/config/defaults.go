package config

import "time"

const DefaultScript = "main.lua"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Script: ScriptConfig{Path: DefaultScript},
		Hyprland: HyprlandConfig{
			EventBacklog:      8,
			RequestAttempts:   6,
			RequestTimeout:    Duration{2 * time.Second},
			SkipUnknownEvents: true,
		},
		Worker:  WorkerConfig{NamePrefix: "worker"},
		Control: ControlConfig{Enable: true},
		Log:     LogConfig{Level: "info"},
	}
}
