// Package doctor runs readiness diagnostics for config, the script, the
// compositor sockets and PulseAudio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/underengineering/crabshell/internal/config"
	"github.com/underengineering/crabshell/internal/hypr"
)

const checkTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Pinger reports whether the audio server answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Input is what Run inspects. Session carries the config overrides already
// applied; Client defaults to a client for Session.
type Input struct {
	Loaded     config.Loaded
	ScriptPath string
	Session    hypr.Session
	Client     *hypr.Client
	Audio      Pinger
}

// Run executes every check. Checks never short-circuit, so one missing
// piece does not hide the state of the others.
func Run(ctx context.Context, in Input) Report {
	checks := []Check{checkConfig(in.Loaded)}

	checks = append(checks, checkScript(in.ScriptPath))

	checks = append(checks, checkValue("XDG_RUNTIME_DIR", in.Session.RuntimeDir,
		"runtime dir "+in.Session.RuntimeDir, "XDG_RUNTIME_DIR is empty"))
	checks = append(checks, checkValue("HYPRLAND_INSTANCE_SIGNATURE", in.Session.Signature,
		"Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	client := in.Client
	if client == nil {
		client = hypr.NewClient(in.Session)
	}
	checks = append(checks, checkCommandSocket(ctx, in.Session, client))
	checks = append(checks, checkEventSocket(in.Session))

	if in.Audio != nil {
		checks = append(checks, checkAudio(ctx, in.Audio))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkScript(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "script", Pass: false, Message: "script path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "script", Pass: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: "script", Pass: false, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return Check{Name: "script", Pass: true, Message: fmt.Sprintf("found %s", path)}
}

// checkValue validates one session identifier after config overrides.
func checkValue(name, value, okMsg, failMsg string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Message: failMsg}
	}
	return Check{Name: name, Pass: true, Message: okMsg}
}

// checkCommandSocket performs one monitors round trip.
func checkCommandSocket(ctx context.Context, session hypr.Session, client *hypr.Client) Check {
	const name = "hyprland.command"
	if err := session.Validate(); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	monitors, err := hypr.Request(ctx, client, hypr.Monitors)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	focused, err := hypr.FocusedMonitor(monitors)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%d monitor(s), focused %q", len(monitors), focused.Name)}
}

// checkEventSocket only looks for the socket file; connecting would take an
// event subscription from the compositor.
func checkEventSocket(session hypr.Session) Check {
	const name = "hyprland.events"
	if err := session.Validate(); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}

	path := session.EventSocketPath()
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a socket", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s", path)}
}

func checkAudio(ctx context.Context, audio Pinger) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := audio.Ping(ctx); err != nil {
		return Check{Name: "pulseaudio", Pass: false, Message: err.Error()}
	}
	return Check{Name: "pulseaudio", Pass: true, Message: "server reachable"}
}
