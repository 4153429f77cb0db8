package config

import (
	"fmt"
	"strings"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// maxEventBacklog is the backlog above which a warning is emitted.
const maxEventBacklog = 4096

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Script.Path) == "" {
		return nil, fmt.Errorf("script.path must not be empty")
	}
	if cfg.Hyprland.EventBacklog <= 0 {
		return nil, fmt.Errorf("hyprland.event_backlog must be > 0")
	}
	if cfg.Hyprland.RequestAttempts <= 0 {
		return nil, fmt.Errorf("hyprland.request_attempts must be > 0")
	}
	if cfg.Hyprland.RequestTimeout.Duration <= 0 {
		return nil, fmt.Errorf("hyprland.request_timeout must be > 0")
	}
	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if !logLevels[level] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if strings.ContainsAny(cfg.Worker.NamePrefix, " \t\n") {
		return nil, fmt.Errorf("worker.name_prefix must not contain whitespace")
	}

	if cfg.Hyprland.EventBacklog > maxEventBacklog {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("hyprland.event_backlog=%d is unusually large; slow receivers will hold that many events each", cfg.Hyprland.EventBacklog)})
	}
	if (cfg.Hyprland.RuntimeDir == "") != (cfg.Hyprland.InstanceSignature == "") {
		warnings = append(warnings, Warning{Message: "only one of hyprland.runtime_dir and hyprland.instance_signature is set; the other comes from the environment"})
	}

	return warnings, nil
}
