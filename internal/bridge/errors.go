package bridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const errorTypeName = "crabshell.error"

// ConversionError reports a value that cannot cross the Lua/native boundary.
type ConversionError struct {
	From   string
	To     string
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
}

// ToLuaDirection reports whether the conversion targeted a Lua value.
func (e *ConversionError) ToLuaDirection() bool {
	return e.To == "lua"
}

// ArgumentError reports a bad argument passed from a script to a native function.
type ArgumentError struct {
	Func  string
	Pos   int
	Name  string
	Cause error
}

func (e *ArgumentError) Error() string {
	target := fmt.Sprintf("#%d", e.Pos)
	if e.Name != "" {
		target = fmt.Sprintf("%q", e.Name)
	}
	return fmt.Sprintf("bad argument %s to %s: %v", target, e.Func, e.Cause)
}

func (e *ArgumentError) Unwrap() error {
	return e.Cause
}

// Raise aborts the running Lua function with err. The error travels as
// userdata so native callers can recover it intact; tostring() on it yields
// err.Error() inside scripts.
func Raise(L *lua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, errorMetatable(L))
	L.Error(ud, 0)
}

// ArgError raises an ArgumentError for argument pos of fn.
func ArgError(L *lua.LState, fn string, pos int, name string, cause error) {
	Raise(L, &ArgumentError{Func: fn, Pos: pos, Name: name, Cause: cause})
}

// GoError extracts a Go error previously raised with Raise.
func GoError(lv lua.LValue) (error, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	err, ok := ud.Value.(error)
	return err, ok
}

// Unwrap resolves a PCall error to the Go error raised inside it, if any.
func Unwrap(err error) error {
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return err
	}
	if goErr, ok := GoError(apiErr.Object); ok {
		return goErr
	}
	return err
}

func errorMetatable(L *lua.LState) *lua.LTable {
	mt := L.NewTypeMetatable(errorTypeName)
	if mt.RawGetString("__tostring") == lua.LNil {
		mt.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
			ud := L.CheckUserData(1)
			if err, ok := ud.Value.(error); ok {
				L.Push(lua.LString(err.Error()))
				return 1
			}
			L.Push(lua.LString(errorTypeName))
			return 1
		}))
	}
	return mt
}
