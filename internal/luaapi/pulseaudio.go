package luaapi

import (
	"context"

	"github.com/underengineering/crabshell/internal/audio"
	"github.com/underengineering/crabshell/internal/bridge"
	lua "github.com/yuin/gopher-lua"
)

func pulseaudioTable(L *lua.LState, telemetry Telemetry) *lua.LTable {
	list := func(fetch func(context.Context) ([]audio.Device, error)) lua.LGFunction {
		return func(L *lua.LState) int {
			devices, err := fetch(callContext(L))
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			if devices == nil {
				devices = []audio.Device{}
			}
			pushJSON(L, devices, nil)
			return 1
		}
	}
	lookup := func(fetch func(context.Context) ([]audio.Device, error)) lua.LGFunction {
		return func(L *lua.LState) int {
			term := L.OptString(1, "")
			devices, err := fetch(callContext(L))
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			dev, err := audio.Find(devices, term)
			if err != nil {
				L.Push(lua.LNil)
				return 1
			}
			pushJSON(L, dev, nil)
			return 1
		}
	}

	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"sinks":          list(telemetry.Sinks),
		"sources":        list(telemetry.Sources),
		"default_sink":   lookup(telemetry.Sinks),
		"default_source": lookup(telemetry.Sources),
		"find_sink":      lookup(telemetry.Sinks),
		"find_source":    lookup(telemetry.Sources),
	})
	return tbl
}
