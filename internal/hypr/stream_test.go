package hypr

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/underengineering/crabshell/internal/broadcast"
	"github.com/underengineering/crabshell/internal/fsm"
)

// pipeStream connects a Stream to the client end of an in-memory pipe and
// returns the server end for writing event lines.
func pipeStream(t *testing.T, backlog int) (*Stream, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })

	stream, err := Connect(context.Background(), Session{RuntimeDir: "/run", Signature: "x"}, StreamOptions{
		Backlog: backlog,
		Dial: func(context.Context, string) (net.Conn, error) {
			return client, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })
	return stream, server
}

func writeLine(t *testing.T, w io.Writer, line string) {
	t.Helper()
	_, err := io.WriteString(w, line+"\n")
	require.NoError(t, err)
}

func recvEvent(t *testing.T, sub *broadcast.Subscription[Event]) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	return ev
}

func TestStreamNextDecodesLines(t *testing.T) {
	stream, server := pipeStream(t, 0)
	require.Equal(t, fsm.StateConnected, stream.State())
	require.Equal(t, DefaultEventBacklog, stream.Backlog())

	go func() {
		_, _ = io.WriteString(server, "workspace>>3\nbogus>>1\n")
	}()

	ev, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, WorkspaceEvent{Workspace: "3"}, ev)

	_, err = stream.Next()
	require.ErrorIs(t, err, ErrUnknownEvent)
	require.True(t, IsDecodeError(err))
}

func TestStreamNextReportsIOErrorOnEOF(t *testing.T) {
	stream, server := pipeStream(t, 0)
	require.NoError(t, server.Close())

	_, err := stream.Next()
	require.Error(t, err)
	require.False(t, IsDecodeError(err))
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamFanOutPreservesOrderAndSkipsHistory(t *testing.T) {
	stream, server := pipeStream(t, 8)

	first := stream.Subscribe()
	second := stream.Subscribe()

	runDone := make(chan error, 1)
	go func() {
		runDone <- stream.Run(context.Background(), nil)
	}()

	writeLine(t, server, "workspace>>1")
	require.Equal(t, WorkspaceEvent{Workspace: "1"}, recvEvent(t, first))

	late := stream.Subscribe()

	writeLine(t, server, "workspace>>2")
	writeLine(t, server, "workspace>>3")

	require.Equal(t, WorkspaceEvent{Workspace: "2"}, recvEvent(t, first))
	require.Equal(t, WorkspaceEvent{Workspace: "3"}, recvEvent(t, first))

	for _, want := range []string{"1", "2", "3"} {
		require.Equal(t, WorkspaceEvent{Workspace: want}, recvEvent(t, second))
	}

	require.Equal(t, WorkspaceEvent{Workspace: "2"}, recvEvent(t, late))
	require.Equal(t, WorkspaceEvent{Workspace: "3"}, recvEvent(t, late))

	require.NoError(t, server.Close())
	select {
	case err := <-runDone:
		require.Error(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "Run did not stop after connection closed")
	}
	require.Equal(t, fsm.StateClosed, stream.State())
	require.Error(t, stream.Err())

	_, err := first.Recv(context.Background())
	require.ErrorIs(t, err, broadcast.ErrClosed)
}

func TestStreamCloseIsIdempotentAndKeepsNilErr(t *testing.T) {
	stream, _ := pipeStream(t, 0)
	sub := stream.Subscribe()

	require.NoError(t, stream.Close())
	require.Equal(t, fsm.StateClosed, stream.State())
	require.NoError(t, stream.Err())
	require.NoError(t, stream.Close())

	_, err := sub.Recv(context.Background())
	require.ErrorIs(t, err, broadcast.ErrClosed)
	require.ErrorIs(t, stream.Run(context.Background(), nil), ErrStreamClosed)
}

func TestStreamCloseWhileRunningEndsRun(t *testing.T) {
	stream, _ := pipeStream(t, 0)

	runDone := make(chan error, 1)
	go func() {
		runDone <- stream.Run(context.Background(), nil)
	}()
	require.Eventually(t, func() bool { return stream.State() == fsm.StateStreaming }, time.Second, 5*time.Millisecond)

	require.NoError(t, stream.Close())
	select {
	case err := <-runDone:
		require.Error(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "Run did not stop after Close")
	}
	require.Equal(t, fsm.StateClosed, stream.State())
	require.NoError(t, stream.Err())
}

func TestStreamRunSkipsDecodeErrorsWhenHandlerAllows(t *testing.T) {
	stream, server := pipeStream(t, 8)
	sub := stream.Subscribe()

	var skipped []error
	go func() {
		_ = stream.Run(context.Background(), func(err error) error {
			skipped = append(skipped, err)
			return nil
		})
	}()

	writeLine(t, server, "workspacev2>>1,1")
	writeLine(t, server, "submap>>resize")

	require.Equal(t, SubmapEvent{Submap: "resize"}, recvEvent(t, sub))
	require.Len(t, skipped, 1)
	require.ErrorIs(t, skipped[0], ErrUnknownEvent)
}

func TestStreamRunPropagatesDecodeErrorsByDefault(t *testing.T) {
	stream, server := pipeStream(t, 8)

	runDone := make(chan error, 1)
	go func() {
		runDone <- stream.Run(context.Background(), nil)
	}()

	writeLine(t, server, "nonsense")
	select {
	case err := <-runDone:
		require.ErrorIs(t, err, ErrMalformedEvent)
	case <-time.After(time.Second):
		require.Fail(t, "Run did not propagate decode error")
	}
	require.Equal(t, fsm.StateClosed, stream.State())
	require.ErrorIs(t, stream.Run(context.Background(), nil), ErrStreamClosed)
}

func TestStreamRunStopsOnContextCancel(t *testing.T) {
	stream, _ := pipeStream(t, 8)
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() {
		runDone <- stream.Run(ctx, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		require.Fail(t, "Run did not stop on cancel")
	}
}

func TestStreamSlowSubscriberDropsOldest(t *testing.T) {
	stream, server := pipeStream(t, 2)
	slow := stream.Subscribe()
	watcher := stream.Subscribe()

	go func() {
		_ = stream.Run(context.Background(), nil)
	}()

	for _, ws := range []string{"1", "2", "3", "4"} {
		writeLine(t, server, "workspace>>"+ws)
		require.Equal(t, WorkspaceEvent{Workspace: ws}, recvEvent(t, watcher))
	}

	require.Equal(t, uint64(2), slow.Dropped())
	require.Equal(t, WorkspaceEvent{Workspace: "3"}, recvEvent(t, slow))
	require.Equal(t, WorkspaceEvent{Workspace: "4"}, recvEvent(t, slow))
}

func TestConnectOverUnixSocket(t *testing.T) {
	session := testSession(t)
	require.NoError(t, os.MkdirAll(session.Dir(), 0o700))
	listener, err := net.Listen("unix", session.EventSocketPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "openwindow>>abc,1,kitty,zsh, ~\n")
	}()

	stream, err := Connect(context.Background(), session, StreamOptions{})
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, OpenWindowEvent{Address: 0xabc, Workspace: "1", Class: "kitty", Title: "zsh, ~"}, ev)
}

func TestConnectRequiresSession(t *testing.T) {
	_, err := Connect(context.Background(), Session{}, StreamOptions{})
	require.ErrorIs(t, err, ErrSessionUnavailable)
}
