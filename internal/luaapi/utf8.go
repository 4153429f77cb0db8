package luaapi

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	lua "github.com/yuin/gopher-lua"
)

func utf8Table(L *lua.LState) *lua.LTable {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"len": func(L *lua.LState) int {
			L.Push(lua.LNumber(utf8.RuneCountInString(L.CheckString(1))))
			return 1
		},
		"sub": func(L *lua.LState) int {
			s := L.CheckString(1)
			begin := L.CheckInt(2)
			end := L.OptInt(3, -1)
			L.Push(lua.LString(runeSlice(s, begin, end)))
			return 1
		},
		// width is the terminal cell width; wide CJK characters count twice.
		"width": func(L *lua.LState) int {
			L.Push(lua.LNumber(runewidth.StringWidth(L.CheckString(1))))
			return 1
		},
		"truncate": func(L *lua.LState) int {
			s := L.CheckString(1)
			width := L.CheckInt(2)
			tail := L.OptString(3, "")
			L.Push(lua.LString(runewidth.Truncate(s, width, tail)))
			return 1
		},
	})
	return tbl
}

// runeSlice returns characters begin..end (1-based, inclusive). A negative
// end runs to the end of s.
func runeSlice(s string, begin, end int) string {
	runes := []rune(s)
	if end < 0 || end > len(runes) {
		end = len(runes)
	}
	if begin < 1 {
		begin = 1
	}
	if begin > end {
		return ""
	}
	return string(runes[begin-1 : end])
}
