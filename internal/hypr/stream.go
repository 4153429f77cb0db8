package hypr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/underengineering/crabshell/internal/broadcast"
	"github.com/underengineering/crabshell/internal/fsm"
)

// DefaultEventBacklog is the per-subscriber buffer. A subscriber that falls
// further behind loses its oldest unread events.
const DefaultEventBacklog = 8

// ErrStreamClosed is returned when operating on a stream that already ended.
var ErrStreamClosed = errors.New("event stream closed")

// StreamOptions tunes Connect.
type StreamOptions struct {
	// Backlog bounds each subscription; <= 0 selects DefaultEventBacklog.
	Backlog int
	// Dial replaces the unix-socket dialer.
	Dial Dialer
}

// DecodeErrorHandler decides whether Run continues past an undecodable line.
// Returning nil skips the line; returning an error ends Run with it.
type DecodeErrorHandler func(err error) error

// Stream reads the event socket and republishes each decoded event to every
// subscription. Decoding and publishing happen on the reading goroutine, so
// subscribers see events in wire order.
type Stream struct {
	conn   net.Conn
	reader *bufio.Reader
	hub    *broadcast.Broadcaster[Event]

	readMu sync.Mutex

	mu    sync.Mutex
	state fsm.State
	err   error
}

// Connect opens the session's event socket.
func Connect(ctx context.Context, session Session, opts StreamOptions) (*Stream, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	dial := opts.Dial
	if dial == nil {
		dial = dialUnix
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = DefaultEventBacklog
	}

	path := session.EventSocketPath()
	conn, err := dial(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("connect event socket %s: %w", path, err)
	}

	state, err := fsm.Transition(fsm.StateDisconnected, fsm.EventConnect)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Stream{
		conn:   conn,
		reader: bufio.NewReader(conn),
		hub:    broadcast.New[Event](backlog),
		state:  state,
	}, nil
}

// Subscribe returns a subscription that sees events published from now on.
func (s *Stream) Subscribe() *broadcast.Subscription[Event] {
	return s.hub.Subscribe()
}

// Backlog reports the per-subscriber buffer size.
func (s *Stream) Backlog() int {
	return s.hub.Capacity()
}

// State reports the lifecycle state.
func (s *Stream) State() fsm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that closed the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next blocks until one full line is read and decoded.
// A *DecodeError is non-fatal; any other error means the connection is dead.
func (s *Stream) Next() (Event, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return nil, fmt.Errorf("read event line: truncated line %q: %w", line, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("read event line: %w", err)
	}
	return ParseEvent(line)
}

// Run reads and publishes until ctx ends, the connection fails, or
// onDecodeError returns an error. A nil handler propagates decode errors.
// The stream is Closed when Run returns and subscribers drain then see closure.
func (s *Stream) Run(ctx context.Context, onDecodeError DecodeErrorHandler) error {
	if err := s.transition(fsm.EventRun, nil); err != nil {
		if s.State() == fsm.StateClosed {
			return ErrStreamClosed
		}
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-stop:
		}
	}()

	for {
		event, err := s.Next()
		if err != nil {
			if IsDecodeError(err) && onDecodeError != nil {
				if err = onDecodeError(err); err == nil {
					continue
				}
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			s.finish(err)
			return err
		}
		s.hub.Publish(event)
	}
}

// Close tears the connection down and closes every subscription. Closing
// an already closed stream is a no-op.
func (s *Stream) Close() error {
	if err := s.transition(fsm.EventClose, nil); err != nil {
		return nil
	}
	s.hub.Close()
	return s.conn.Close()
}

// transition applies event to the lifecycle state. A non-nil cause is kept
// as the stream's terminal error.
func (s *Stream) transition(event fsm.Event, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fsm.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	if cause != nil {
		s.err = cause
	}
	return nil
}

// finish records why Run ended. A stream closed concurrently keeps its
// nil error.
func (s *Stream) finish(cause error) {
	_ = s.transition(fsm.EventFail, cause)
	s.hub.Close()
	_ = s.conn.Close()
}
