package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/underengineering/crabshell/internal/audio"
	"github.com/underengineering/crabshell/internal/config"
	"github.com/underengineering/crabshell/internal/control"
	"github.com/underengineering/crabshell/internal/hypr"
)

// commandEvents prints one JSON object per event until ctx ends or the
// compositor closes the socket. A clean close is not an error.
func (r Runner) commandEvents(ctx context.Context, cfg config.HyprlandConfig, session hypr.Session, logger *slog.Logger) int {
	stream, err := hypr.Connect(ctx, session, hypr.StreamOptions{Backlog: cfg.EventBacklog})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = stream.Close() }()

	sub := stream.Subscribe()
	defer sub.Close()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- stream.Run(ctx, func(err error) error {
			if cfg.SkipUnknownEvents && errors.Is(err, hypr.ErrUnknownEvent) {
				logger.Debug("skipping unknown event", "error", err.Error())
				return nil
			}
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
			return nil
		})
	}()

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			break
		}
		line, err := eventJSON(ev)
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
			continue
		}
		fmt.Fprintln(r.Stdout, string(line))
	}
	if dropped := sub.Dropped(); dropped > 0 {
		logger.Warn("events dropped", "count", dropped)
	}

	runErr := <-runErrCh
	if ctx.Err() != nil || errors.Is(runErr, io.EOF) {
		return 0
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	return 0
}

// eventJSON renders ev with its wire name under "type".
func eventJSON(ev hypr.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Name(), err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Name(), err)
	}
	fields["type"] = ev.Name()
	return json.Marshal(fields)
}

func (r Runner) commandQuery(ctx context.Context, cfg config.HyprlandConfig, session hypr.Session, name string) int {
	cmd, ok := hypr.LookupCommand(name)
	if !ok {
		fmt.Fprintf(r.Stderr, "error: unknown query %q (known: %s)\n", name, strings.Join(hypr.CommandNames(), ", "))
		return 2
	}
	if err := session.Validate(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	reply, err := newClient(cfg, session).RequestGeneric(ctx, cmd)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	body, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: encode reply: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(body))
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	pulse := audio.NewPulse()

	sinks, err := pulse.Sinks(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	sources, err := pulse.Sources(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sinks) == 0 && len(sources) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range append(sinks, sources...) {
		r.printDevice(device)
	}
	return 0
}

func (r Runner) printDevice(device audio.Device) {
	defaultMark := " "
	if device.Default {
		defaultMark = "*"
	}
	availability := "yes"
	if !device.Available {
		availability = "no"
	}
	muted := "no"
	if device.Muted {
		muted = "yes"
	}
	fmt.Fprintf(
		r.Stdout,
		"%s %-6s id=%s | description=%q | state=%s | available=%s | muted=%s | volume=%.0f%%\n",
		defaultMark,
		device.Kind,
		device.ID,
		device.Description,
		device.State,
		availability,
		muted,
		device.Volume*100,
	)
}

// commandStatus prints one "name: STATUS" line per control service. No
// running shell reports every service as stopped.
func (r Runner) commandStatus(ctx context.Context) int {
	statuses := control.EveryService(control.StatusStopped)
	if socketPath, err := control.RuntimeSocketPath(); err == nil {
		statuses, err = control.Status(ctx, socketPath, statusTimeout)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	for _, s := range statuses {
		fmt.Fprintf(r.Stdout, "%s: %s\n", s.Name(), s.Status)
	}
	return 0
}
