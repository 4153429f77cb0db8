package control

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func statusByName(statuses []ServiceStatus) map[string]string {
	out := make(map[string]string, len(statuses))
	for _, s := range statuses {
		out[s.Name()] = s.Status
	}
	return out
}

func TestStatusReportsServingComponents(t *testing.T) {
	socketPath := filepath.Join(shortDir(t), "crabshell.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	server, cancel, done := serveHealth(t, listener)
	server.SetServing(ServiceEvents, true)

	statuses, err := Status(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, statuses, len(Services))
	require.Equal(t, map[string]string{
		"crabshell":         "SERVING",
		"crabshell.events":  "SERVING",
		"crabshell.workers": "NOT_SERVING",
	}, statusByName(statuses))

	server.SetServing(ServiceEvents, false)
	statuses, err = Status(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "NOT_SERVING", statusByName(statuses)["crabshell.events"])

	cancel()
	require.NoError(t, <-done)
}

func TestStatusReportsStoppedWithoutOwner(t *testing.T) {
	socketPath := filepath.Join(shortDir(t), "crabshell.sock")

	statuses, err := Status(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, statuses, len(Services))
	for _, s := range statuses {
		require.Equal(t, StatusStopped, s.Status)
	}
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(shortDir(t), "crabshell.sock")

	alive, err := Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	_, cancel, done := serveHealth(t, listener)

	alive, err = Probe(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)
}

func TestServeReturnsNilWhenCancelledBeforeStart(t *testing.T) {
	socketPath := filepath.Join(shortDir(t), "crabshell.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, NewServer().Serve(ctx, listener))
}

func TestStatusReportsUnreachableOwner(t *testing.T) {
	socketPath := filepath.Join(shortDir(t), "crabshell.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		var held []net.Conn
		defer func() {
			for _, conn := range held {
				_ = conn.Close()
			}
		}()
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			held = append(held, conn)
		}
	}()
	t.Cleanup(func() {
		_ = listener.Close()
		<-acceptDone
	})

	_, err = Probe(context.Background(), socketPath, 150*time.Millisecond)
	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	require.Equal(t, socketPath, unreachable.Path)

	statuses, err := Status(context.Background(), socketPath, 150*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, statuses, len(Services))
	for _, s := range statuses {
		require.Equal(t, StatusUnreachable, s.Status)
	}
}

func TestEveryService(t *testing.T) {
	require.Equal(t, map[string]string{
		"crabshell":         StatusStopped,
		"crabshell.events":  StatusStopped,
		"crabshell.workers": StatusStopped,
	}, statusByName(EveryService(StatusStopped)))
}
