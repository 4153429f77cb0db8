package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/underengineering/crabshell/internal/bridge"
	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrClosed is returned by Recv once the terminal message has been
	// consumed, and by Send after the worker has finished.
	ErrClosed = errors.New("worker channel closed")
)

// Phase identifies where a worker script failed.
type Phase string

const (
	PhaseSyntax  Phase = "syntax"
	PhaseSetup   Phase = "setup"
	PhaseRuntime Phase = "runtime"
)

// ScriptError is a failure of a worker script. Cause holds the Go error the
// script raised through a native function, when there is one.
type ScriptError struct {
	Worker    string
	Phase     Phase
	Message   string
	Traceback string
	Cause     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("worker %q: %s error: %s", e.Worker, e.Phase, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

func syntaxError(name string, err error) *ScriptError {
	return &ScriptError{Worker: name, Phase: PhaseSyntax, Message: err.Error(), Cause: err}
}

func runtimeError(name string, err error) *ScriptError {
	scriptErr := &ScriptError{Worker: name, Phase: PhaseRuntime, Message: err.Error()}

	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		scriptErr.Cause = err
		return scriptErr
	}
	scriptErr.Traceback = strings.TrimSpace(apiErr.StackTrace)
	if goErr, ok := bridge.GoError(apiErr.Object); ok {
		scriptErr.Message = goErr.Error()
		scriptErr.Cause = goErr
		return scriptErr
	}
	scriptErr.Message = apiErr.Object.String()
	scriptErr.Cause = apiErr
	return scriptErr
}
