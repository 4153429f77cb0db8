// Package luaapi installs the native tables scripts see: hyprland, worker,
// pulseaudio, sysinfo, utils and utf8.
package luaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/underengineering/crabshell/internal/audio"
	"github.com/underengineering/crabshell/internal/bridge"
	"github.com/underengineering/crabshell/internal/hypr"
	"github.com/underengineering/crabshell/internal/sysinfo"
	"github.com/underengineering/crabshell/internal/worker"
	lua "github.com/yuin/gopher-lua"
)

// Telemetry is the audio surface exposed as the pulseaudio table.
type Telemetry interface {
	Sinks(ctx context.Context) ([]audio.Device, error)
	Sources(ctx context.Context) ([]audio.Device, error)
}

// Options carries the collaborators the bindings call into.
type Options struct {
	Session hypr.Session
	// Client defaults to a client for Session.
	Client *hypr.Client
	Stream hypr.StreamOptions
	// SkipUnknownEvents keeps event loops running past event names this
	// build does not know.
	SkipUnknownEvents bool
	// OnEventLoop is told when an event loop starts and stops reading.
	OnEventLoop func(running bool)
	Audio       Telemetry
	System      SystemInfo
	// Pool backs worker.Worker.start; it is only installed in the host state.
	Pool   *worker.Pool
	Stdout io.Writer
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = hypr.NewClient(o.Session)
	}
	if o.Audio == nil {
		o.Audio = audio.NewPulse()
	}
	if o.System == nil {
		o.System = sysinfo.New()
	}
	if o.OnEventLoop == nil {
		o.OnEventLoop = func(bool) {}
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Install sets the host globals on L.
func Install(L *lua.LState, opts Options) error {
	opts = opts.withDefaults()
	if opts.Pool == nil {
		return fmt.Errorf("install worker table: no worker pool")
	}
	installShared(L, opts)
	L.SetGlobal("worker", workerTable(L, opts.Pool))
	return nil
}

// WorkerLibraries returns the installers applied to every worker state.
// Workers get the shared tables; their worker global holds the mailbox
// primitives instead of the Worker constructor.
func WorkerLibraries(opts Options) []worker.Library {
	opts = opts.withDefaults()
	return []worker.Library{
		func(L *lua.LState) error {
			installShared(L, opts)
			return nil
		},
	}
}

func installShared(L *lua.LState, opts Options) {
	L.SetGlobal("hyprland", hyprlandTable(L, opts))
	L.SetGlobal("pulseaudio", pulseaudioTable(L, opts.Audio))
	L.SetGlobal("sysinfo", sysinfoTable(L, opts.System))
	L.SetGlobal("utils", utilsTable(L, opts.Stdout))
	L.SetGlobal("utf8", utf8Table(L))
}

// callContext is the context blocking bindings run under. Cancelling the
// context installed with SetContext interrupts them.
func callContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pushJSON pushes a JSON-tagged Go value as a Lua table, raising on failure.
func pushJSON(L *lua.LState, v any, extra map[string]any) {
	lv, err := jsonToLua(L, v, extra)
	if err != nil {
		bridge.Raise(L, err)
		return
	}
	L.Push(lv)
}

func jsonToLua(L *lua.LState, v any, extra map[string]any) (lua.LValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return lua.LNil, &bridge.ConversionError{From: fmt.Sprintf("%T", v), To: "lua", Reason: err.Error()}
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return lua.LNil, &bridge.ConversionError{From: fmt.Sprintf("%T", v), To: "lua", Reason: err.Error()}
	}
	if len(extra) > 0 {
		fields, ok := generic.(map[string]any)
		if !ok {
			return lua.LNil, &bridge.ConversionError{From: fmt.Sprintf("%T", v), To: "lua", Reason: "not an object"}
		}
		for k, val := range extra {
			fields[k] = val
		}
	}
	return bridge.GoToLua(L, generic)
}

// newUserData wraps value with the metatable registered under typeName.
func newUserData(L *lua.LState, typeName string, value any, methods map[string]lua.LGFunction) *lua.LUserData {
	mt := L.NewTypeMetatable(typeName)
	if mt.RawGetString("__index") == lua.LNil {
		mt.RawSetString("__index", L.SetFuncs(L.NewTable(), methods))
		mt.RawSetString("__name", lua.LString(typeName))
	}
	ud := L.NewUserData()
	ud.Value = value
	L.SetMetatable(ud, mt)
	return ud
}

// checkUserData returns argument n as a *T registered under typeName.
func checkUserData[T any](L *lua.LState, n int, typeName string) *T {
	ud := L.CheckUserData(n)
	if v, ok := ud.Value.(*T); ok {
		return v
	}
	L.ArgError(n, typeName+" expected")
	return nil
}
