package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/underengineering/crabshell/internal/cli"
	"github.com/underengineering/crabshell/internal/config"
	"github.com/underengineering/crabshell/internal/control"
	"github.com/underengineering/crabshell/internal/hypr"
	"github.com/underengineering/crabshell/internal/luaapi"
	"github.com/underengineering/crabshell/internal/worker"
	lua "github.com/yuin/gopher-lua"
)

// commandRun executes the shell script. Workers still running when the
// script returns are interrupted.
func (r Runner) commandRun(
	ctx context.Context,
	loaded config.Loaded,
	parsed cli.Parsed,
	session hypr.Session,
	logger *slog.Logger,
) int {
	cfg := loaded.Config
	scriptPath, err := filepath.Abs(loaded.ScriptPath(parsed.ScriptPath))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: resolve script path: %v\n", err)
		return 1
	}
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read script: %v\n", err)
		return 1
	}
	if err := session.Validate(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var server *control.Server
	if cfg.Control.Enable {
		var release func()
		server, release, err = r.startControl(runCtx, logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		defer release()
	}

	loops := &eventLoopStatus{server: server}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(runCtx)

	opts := luaapi.Options{
		Session:           session,
		Client:            newClient(cfg.Hyprland, session),
		Stream:            hypr.StreamOptions{Backlog: cfg.Hyprland.EventBacklog},
		SkipUnknownEvents: cfg.Hyprland.SkipUnknownEvents,
		OnEventLoop:       loops.track,
		Stdout:            r.Stdout,
		Logger:            logger,
	}
	pool := worker.NewPool(worker.Options{
		NamePrefix: cfg.Worker.NamePrefix,
		Libraries:  luaapi.WorkerLibraries(opts),
		Context:    runCtx,
	})
	opts.Pool = pool
	if err := luaapi.Install(L, opts); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if server != nil {
		server.SetServing(control.ServiceWorkers, true)
	}

	restore, err := chdir(filepath.Dir(scriptPath))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer restore()

	args := append(append([]string(nil), cfg.Script.Args...), parsed.Args...)
	logger.Info("script start", "script", scriptPath, "args", len(args))

	if err := runScript(L, scriptPath, source, args); err != nil {
		fmt.Fprintln(r.Stderr, luaapi.FormatError(err))
		logger.Error("script failed", "script", scriptPath, "error", err.Error())
		return 1
	}

	if active := pool.Active(); active > 0 {
		logger.Info("script returned with workers running", "active", active)
	}
	logger.Info("script complete", "script", scriptPath)
	return 0
}

// runScript loads source and calls it with args as varargs. The same args
// are visible as the arg table, with arg[0] naming the script.
func runScript(L *lua.LState, name string, source []byte, args []string) error {
	fn, err := L.Load(bytes.NewReader(source), name)
	if err != nil {
		return err
	}

	argTable := L.CreateTable(len(args), 1)
	argTable.RawSetInt(0, lua.LString(name))
	for i, arg := range args {
		argTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("arg", argTable)

	L.Push(fn)
	for _, arg := range args {
		L.Push(lua.LString(arg))
	}
	return L.PCall(len(args), lua.MultRet, nil)
}

// startControl claims the control socket and serves health on it until ctx
// ends. release stops the server and removes the socket.
func (r Runner) startControl(ctx context.Context, logger *slog.Logger) (*control.Server, func(), error) {
	socketPath, err := control.RuntimeSocketPath()
	if err != nil {
		return nil, nil, err
	}

	onStale := func(path string) {
		logger.Warn("removed stale control socket", "path", path)
	}
	listener, err := control.Acquire(ctx, socketPath, controlProbeTimeout, controlRetries, onStale)
	if err != nil {
		if errors.Is(err, control.ErrAlreadyRunning) {
			return nil, nil, fmt.Errorf("%w (socket %s)", err, socketPath)
		}
		return nil, nil, err
	}

	server := control.NewServer()
	serverCtx, serverCancel := context.WithCancel(ctx)
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Serve(serverCtx, listener)
	}()
	logger.Info("control socket listening", "path", socketPath)

	release := func() {
		serverCancel()
		if serverErr := <-serverErrCh; serverErr != nil {
			logger.Error("control server failed", "error", serverErr.Error())
		}
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}
	return server, release, nil
}

// eventLoopStatus reports crabshell.events as serving while at least one
// script event loop is reading the compositor stream.
type eventLoopStatus struct {
	mu      sync.Mutex
	server  *control.Server
	running int
}

func (s *eventLoopStatus) track(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case running:
		s.running++
	case s.running > 0:
		s.running--
	}
	if s.server != nil {
		s.server.SetServing(control.ServiceEvents, s.running > 0)
	}
}

// chdir switches the process working directory and returns a func that
// switches it back.
func chdir(dir string) (func(), error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("enter script directory: %w", err)
	}
	return func() { _ = os.Chdir(prev) }, nil
}
