package luaapi

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/underengineering/crabshell/internal/bridge"
	lua "github.com/yuin/gopher-lua"
)

func utilsTable(L *lua.LState, stdout io.Writer) *lua.LTable {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"sleep": func(L *lua.LState) int {
			secs := float64(L.CheckNumber(1))
			if secs <= 0 {
				return 0
			}
			timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
			defer timer.Stop()
			ctx := callContext(L)
			select {
			case <-timer.C:
			case <-ctx.Done():
				bridge.Raise(L, ctx.Err())
			}
			return 0
		},
		"getenv": func(L *lua.LState) int {
			value, ok := os.LookupEnv(L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(value))
			return 1
		},
		"print_table": func(L *lua.LState) int {
			var b strings.Builder
			writeTable(&b, L.CheckTable(1), map[*lua.LTable]bool{}, 0)
			b.WriteString("\n")
			_, _ = io.WriteString(stdout, b.String())
			return 0
		},
	})
	return tbl
}

// writeTable renders tbl one entry per line with tab indentation. Tables
// already on the current path print as their address.
func writeTable(b *strings.Builder, tbl *lua.LTable, seen map[*lua.LTable]bool, depth int) {
	seen[tbl] = true
	defer delete(seen, tbl)

	type entry struct{ key, value lua.LValue }
	var entries []entry
	tbl.ForEach(func(k, v lua.LValue) { entries = append(entries, entry{k, v}) })
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.String() < entries[j].key.String()
	})

	indent := strings.Repeat("\t", depth)
	b.WriteString(indent + "{\n")
	for _, e := range entries {
		key := formatLuaValue(e.key)
		if nested, ok := e.value.(*lua.LTable); ok && !seen[nested] {
			fmt.Fprintf(b, "%s\t[%s] =\n", indent, key)
			writeTable(b, nested, seen, depth+1)
			b.WriteString(",\n")
			continue
		}
		fmt.Fprintf(b, "%s\t[%s] = %s,\n", indent, key, formatLuaValue(e.value))
	}
	b.WriteString(indent + "}")
}

func formatLuaValue(v lua.LValue) string {
	if s, ok := v.(lua.LString); ok {
		return fmt.Sprintf("%q", strings.ReplaceAll(string(s), "\n", `\n`))
	}
	return v.String()
}
