// Package fsm models the event-stream connection lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateStreaming    State = "streaming"
	StateClosed       State = "closed"
)

const (
	EventConnect Event = "connect"
	EventRun     Event = "run"
	EventClose   Event = "close"
	EventFail    Event = "fail"
)

// Transition returns the state reached from current on event.
// Closed is terminal; fail and close both land there from any live state.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateDisconnected:
		switch event {
		case EventConnect:
			return StateConnected, nil
		case EventFail:
			return StateClosed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnected:
		switch event {
		case EventRun:
			return StateStreaming, nil
		case EventClose, EventFail:
			return StateClosed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStreaming:
		switch event {
		case EventClose, EventFail:
			return StateClosed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateClosed:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
