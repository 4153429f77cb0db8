package luaapi

import (
	"context"

	"github.com/underengineering/crabshell/internal/bridge"
	"github.com/underengineering/crabshell/internal/sysinfo"
	lua "github.com/yuin/gopher-lua"
)

// SystemInfo is the host surface exposed as the sysinfo table.
type SystemInfo interface {
	CPU(ctx context.Context) (sysinfo.CPU, error)
	Memory(ctx context.Context) (sysinfo.Memory, error)
	Load(ctx context.Context) (sysinfo.Load, error)
	Host(ctx context.Context) (sysinfo.Host, error)
}

func sysinfoTable(L *lua.LState, system SystemInfo) *lua.LTable {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"cpu":    sample(system.CPU),
		"memory": sample(system.Memory),
		"load":   sample(system.Load),
		"host":   sample(system.Host),
		"uptime": func(L *lua.LState) int {
			h, err := system.Host(callContext(L))
			if err != nil {
				bridge.Raise(L, err)
				return 0
			}
			L.Push(lua.LNumber(h.Uptime))
			return 1
		},
	})
	return tbl
}

// sample wraps a reader as a binding returning its result as a table.
func sample[T any](read func(context.Context) (T, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		v, err := read(callContext(L))
		if err != nil {
			bridge.Raise(L, err)
			return 0
		}
		pushJSON(L, v, nil)
		return 1
	}
}
