package luaapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/underengineering/crabshell/internal/bridge"
	"github.com/underengineering/crabshell/internal/broadcast"
	"github.com/underengineering/crabshell/internal/hypr"
	lua "github.com/yuin/gopher-lua"
)

const (
	eventLoopType     = "crabshell.event_loop"
	eventReceiverType = "crabshell.event_receiver"
)

type eventLoop struct {
	stream *hypr.Stream
	opts   Options
}

type eventReceiver struct {
	sub *broadcast.Subscription[hypr.Event]
}

func hyprlandTable(L *lua.LState, opts Options) *lua.LTable {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"ipc_request": func(L *lua.LState) int {
			name := L.CheckString(1)
			cmd, ok := hypr.LookupCommand(name)
			if !ok {
				bridge.ArgError(L, "hyprland.ipc_request", 1, "name", fmt.Errorf("unknown ipc command %q", name))
				return 0
			}
			reply, err := opts.Client.RequestGeneric(callContext(L), cmd)
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			lv, err := bridge.GoToLua(L, reply)
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			L.Push(lv)
			return 1
		},
		"dispatch": func(L *lua.LState) int {
			args := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				args = append(args, L.CheckString(i))
			}
			if len(args) == 0 {
				bridge.ArgError(L, "hyprland.dispatch", 1, "", errors.New("expected a dispatcher name"))
				return 0
			}
			if err := opts.Client.Dispatch(callContext(L), args...); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"notify": func(L *lua.LState) int {
			text := L.CheckString(1)
			timeoutMS := L.OptInt(2, 3000)
			color := L.OptString(3, "")
			icon := L.OptInt(4, -1)
			if err := opts.Client.Notify(callContext(L), icon, timeoutMS, color, text); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"dismiss_notify": func(L *lua.LState) int {
			if err := opts.Client.DismissNotify(callContext(L)); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"set_submap": func(L *lua.LState) int {
			if err := opts.Client.SetSubmap(callContext(L), L.CheckString(1)); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"reset_submap": func(L *lua.LState) int {
			if err := opts.Client.ResetSubmap(callContext(L)); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
	})

	loop := L.NewTable()
	loop.RawSetString("connect", L.NewFunction(func(L *lua.LState) int {
		stream, err := hypr.Connect(callContext(L), opts.Session, opts.Stream)
		if err != nil {
			bridge.Raise(L, err)
			return 0
		}
		L.Push(newEventLoop(L, &eventLoop{stream: stream, opts: opts}))
		return 1
	}))
	tbl.RawSetString("EventLoop", loop)
	return tbl
}

func newEventLoop(L *lua.LState, loop *eventLoop) *lua.LUserData {
	return newUserData(L, eventLoopType, loop, map[string]lua.LGFunction{
		"receiver": func(L *lua.LState) int {
			loop := checkUserData[eventLoop](L, 1, eventLoopType)
			L.Push(newEventReceiver(L, &eventReceiver{sub: loop.stream.Subscribe()}))
			return 1
		},
		"run": func(L *lua.LState) int {
			loop := checkUserData[eventLoop](L, 1, eventLoopType)
			if err := loop.run(callContext(L)); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"spawn": func(L *lua.LState) int {
			loop := checkUserData[eventLoop](L, 1, eventLoopType)
			ctx := callContext(L)
			loop.opts.OnEventLoop(true)
			go func() {
				defer loop.opts.OnEventLoop(false)
				if err := loop.stream.Run(ctx, loop.decodeErrorHandler()); err != nil && ctx.Err() == nil {
					loop.opts.Logger.Error("event loop stopped", "error", err.Error())
				}
			}()
			return 0
		},
		"close": func(L *lua.LState) int {
			loop := checkUserData[eventLoop](L, 1, eventLoopType)
			if err := loop.stream.Close(); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"state": func(L *lua.LState) int {
			loop := checkUserData[eventLoop](L, 1, eventLoopType)
			L.Push(lua.LString(loop.stream.State()))
			return 1
		},
	})
}

func (l *eventLoop) run(ctx context.Context) error {
	l.opts.OnEventLoop(true)
	defer l.opts.OnEventLoop(false)
	return l.stream.Run(ctx, l.decodeErrorHandler())
}

func (l *eventLoop) decodeErrorHandler() hypr.DecodeErrorHandler {
	return func(err error) error {
		if l.opts.SkipUnknownEvents && errors.Is(err, hypr.ErrUnknownEvent) {
			l.opts.Logger.Debug("skipping unknown event", "error", err.Error())
			return nil
		}
		return err
	}
}

func newEventReceiver(L *lua.LState, rx *eventReceiver) *lua.LUserData {
	return newUserData(L, eventReceiverType, rx, map[string]lua.LGFunction{
		// recv blocks for the next event and returns nil once the loop has
		// ended and the backlog is drained.
		"recv": func(L *lua.LState) int {
			rx := checkUserData[eventReceiver](L, 1, eventReceiverType)
			ev, err := rx.sub.Recv(callContext(L))
			if errors.Is(err, broadcast.ErrClosed) {
				L.Push(lua.LNil)
				return 1
			}
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			pushEvent(L, ev)
			return 1
		},
		"try_recv": func(L *lua.LState) int {
			rx := checkUserData[eventReceiver](L, 1, eventReceiverType)
			ev, ok, err := rx.sub.TryRecv()
			if err != nil || !ok {
				L.Push(lua.LNil)
				return 1
			}
			pushEvent(L, ev)
			return 1
		},
		"dropped": func(L *lua.LState) int {
			rx := checkUserData[eventReceiver](L, 1, eventReceiverType)
			L.Push(lua.LNumber(rx.sub.Dropped()))
			return 1
		},
		"close": func(L *lua.LState) int {
			rx := checkUserData[eventReceiver](L, 1, eventReceiverType)
			rx.sub.Close()
			return 0
		},
	})
}

// pushEvent pushes ev as a table of its fields plus a "type" key holding
// the wire name.
func pushEvent(L *lua.LState, ev hypr.Event) {
	pushJSON(L, ev, map[string]any{"type": ev.Name()})
}
