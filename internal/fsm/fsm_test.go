package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateDisconnected

	next, err := Transition(s, EventConnect)
	require.NoError(t, err)
	require.Equal(t, StateConnected, next)

	next, err = Transition(next, EventRun)
	require.NoError(t, err)
	require.Equal(t, StateStreaming, next)

	next, err = Transition(next, EventClose)
	require.NoError(t, err)
	require.Equal(t, StateClosed, next)
}

func TestTransitionFailFromLiveStatesGoesClosed(t *testing.T) {
	states := []State{StateDisconnected, StateConnected, StateStreaming}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateClosed, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "disconnected run invalid", state: StateDisconnected, event: EventRun, want: StateDisconnected, wantErr: true},
		{name: "disconnected close invalid", state: StateDisconnected, event: EventClose, want: StateDisconnected, wantErr: true},
		{name: "connected connect invalid", state: StateConnected, event: EventConnect, want: StateConnected, wantErr: true},
		{name: "connected close valid", state: StateConnected, event: EventClose, want: StateClosed, wantErr: false},
		{name: "streaming run invalid", state: StateStreaming, event: EventRun, want: StateStreaming, wantErr: true},
		{name: "streaming connect invalid", state: StateStreaming, event: EventConnect, want: StateStreaming, wantErr: true},
		{name: "closed connect invalid", state: StateClosed, event: EventConnect, want: StateClosed, wantErr: true},
		{name: "closed fail invalid", state: StateClosed, event: EventFail, want: StateClosed, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventConnect)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
