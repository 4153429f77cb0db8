package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/underengineering/crabshell/internal/audio"
	"github.com/underengineering/crabshell/internal/cli"
	"github.com/underengineering/crabshell/internal/config"
	"github.com/underengineering/crabshell/internal/doctor"
	"github.com/underengineering/crabshell/internal/hypr"
	"github.com/underengineering/crabshell/internal/logging"
	"github.com/underengineering/crabshell/internal/version"
)

const (
	binaryName = "crabshell"

	controlProbeTimeout = 180 * time.Millisecond
	controlRetries      = 8
	statusTimeout       = time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	session := sessionFor(cfgLoaded.Config.Hyprland)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded, parsed, session, logger)
	case cli.CommandEvents:
		return r.commandEvents(ctx, cfgLoaded.Config.Hyprland, session, logger)
	case cli.CommandQuery:
		return r.commandQuery(ctx, cfgLoaded.Config.Hyprland, session, parsed.Args[0])
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, doctor.Input{
			Loaded:     cfgLoaded,
			ScriptPath: cfgLoaded.ScriptPath(parsed.ScriptPath),
			Session:    session,
			Client:     newClient(cfgLoaded.Config.Hyprland, session),
			Audio:      audio.NewPulse(),
		})
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// sessionFor reads the compositor identity from the environment and lets
// the config override either half. It is not validated here; run, events
// and query refuse to start without one, doctor reports it.
func sessionFor(cfg config.HyprlandConfig) hypr.Session {
	session := hypr.Session{
		RuntimeDir: strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")),
		Signature:  strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")),
	}
	if dir := strings.TrimSpace(cfg.RuntimeDir); dir != "" {
		session.RuntimeDir = dir
	}
	if sig := strings.TrimSpace(cfg.InstanceSignature); sig != "" {
		session.Signature = sig
	}
	return session
}

func newClient(cfg config.HyprlandConfig, session hypr.Session) *hypr.Client {
	return hypr.NewClient(session,
		hypr.WithMaxAttempts(cfg.RequestAttempts),
		hypr.WithTimeout(cfg.RequestTimeout.Duration),
	)
}
