package luaapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/underengineering/crabshell/internal/bridge"
	"github.com/underengineering/crabshell/internal/worker"
	lua "github.com/yuin/gopher-lua"
)

// FormatError renders a script failure for the terminal. Each layer gets a
// heading naming its kind, and nested causes follow as "Caused by:" blocks.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *lua.ApiError:
		return formatAPIError(e)
	case *bridge.ArgumentError:
		target := fmt.Sprintf("at %d", e.Pos)
		if e.Name != "" {
			target = "`" + e.Name + "`"
		}
		fn := e.Func
		if fn == "" {
			fn = "(unknown)"
		}
		return fmt.Sprintf("Bad argument error:\n\tWrong argument %s passed to %s\nCaused by: %s", target, fn, FormatError(e.Cause))
	case *bridge.ConversionError:
		direction := "From lua"
		if e.ToLuaDirection() {
			direction = "To lua"
		}
		reason := ""
		if e.Reason != "" {
			reason = ": " + e.Reason
		}
		return fmt.Sprintf("%s conversion error:\n\tFailed to convert `%s` to `%s`%s", direction, e.From, e.To, reason)
	case *worker.ScriptError:
		return formatScriptError(e)
	}

	if cause := errors.Unwrap(err); cause != nil && isScriptFailure(cause) {
		return fmt.Sprintf("External error:\n%s\nCaused by: %s", err.Error(), FormatError(cause))
	}
	return "External error:\n" + err.Error()
}

func formatAPIError(e *lua.ApiError) string {
	if goErr, ok := bridge.GoError(e.Object); ok {
		return fmt.Sprintf("Callback error:\n%s\nCaused by: %s", strings.TrimSpace(e.StackTrace), FormatError(goErr))
	}
	message := e.Object.String()
	switch e.Type {
	case lua.ApiErrorSyntax:
		return "Syntax error:\n" + message
	case lua.ApiErrorFile:
		return "File error:\n" + message
	}
	if trace := strings.TrimSpace(e.StackTrace); trace != "" {
		message += "\n" + trace
	}
	return "Runtime error:\n" + message
}

func formatScriptError(e *worker.ScriptError) string {
	heading := fmt.Sprintf("Worker error (%s, %s):\n%s", e.Worker, e.Phase, e.Message)
	if e.Traceback != "" {
		heading += "\n" + e.Traceback
	}
	if e.Cause == nil || e.Phase == worker.PhaseSyntax {
		return heading
	}
	if _, ok := e.Cause.(*lua.ApiError); ok {
		return heading
	}
	return heading + "\nCaused by: " + FormatError(e.Cause)
}

// isScriptFailure reports whether err has a rendering of its own.
func isScriptFailure(err error) bool {
	switch err.(type) {
	case *lua.ApiError, *bridge.ArgumentError, *bridge.ConversionError, *worker.ScriptError:
		return true
	}
	return false
}
