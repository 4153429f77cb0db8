package hypr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSessionUnavailable reports a missing runtime directory or instance signature.
var ErrSessionUnavailable = errors.New("hyprland session unavailable")

// Session identifies one compositor instance and derives its socket paths.
type Session struct {
	RuntimeDir string
	Signature  string
}

// SessionFromEnv reads XDG_RUNTIME_DIR and HYPRLAND_INSTANCE_SIGNATURE.
func SessionFromEnv() (Session, error) {
	s := Session{
		RuntimeDir: strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")),
		Signature:  strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")),
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate requires both identifiers to be present.
func (s Session) Validate() error {
	if strings.TrimSpace(s.RuntimeDir) == "" {
		return fmt.Errorf("%w: XDG_RUNTIME_DIR is not set", ErrSessionUnavailable)
	}
	if strings.TrimSpace(s.Signature) == "" {
		return fmt.Errorf("%w: HYPRLAND_INSTANCE_SIGNATURE is not set", ErrSessionUnavailable)
	}
	return nil
}

// Dir is the per-instance socket directory.
func (s Session) Dir() string {
	return filepath.Join(s.RuntimeDir, "hypr", s.Signature)
}

// CommandSocketPath is the request/response socket.
func (s Session) CommandSocketPath() string {
	return filepath.Join(s.Dir(), ".socket.sock")
}

// EventSocketPath is the line-oriented event socket.
func (s Session) EventSocketPath() string {
	return filepath.Join(s.Dir(), ".socket2.sock")
}
