package hypr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultRequestAttempts bounds retries of transient connection resets.
	DefaultRequestAttempts = 6
	// DefaultRequestTimeout applies when the caller's context has no deadline.
	DefaultRequestTimeout = 2 * time.Second

	jsonPreamble = "j/"
)

// ErrMaxRetriesExceeded means the command socket kept resetting the
// connection before a request could be written; the server most likely
// never became ready.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Dialer opens a connection to a unix socket path.
type Dialer func(ctx context.Context, path string) (net.Conn, error)

func dialUnix(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// Client issues request/response exchanges on the command socket.
// Every exchange uses its own connection, so a Client is safe for concurrent use.
type Client struct {
	session  Session
	path     string
	dial     Dialer
	attempts int
	timeout  time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithDialer replaces the unix-socket dialer.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.dial = d
		}
	}
}

// WithMaxAttempts bounds how many times a transient failure is retried.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithTimeout sets the per-exchange deadline used when ctx has none.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient targets the session's command socket.
func NewClient(session Session, opts ...ClientOption) *Client {
	c := &Client{
		session:  session,
		path:     session.CommandSocketPath(),
		dial:     dialUnix,
		attempts: DefaultRequestAttempts,
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the command socket path.
func (c *Client) Path() string {
	return c.path
}

// Request runs cmd in structured-reply mode and decodes the drained reply.
func Request[T any](ctx context.Context, c *Client, cmd Command[T]) (T, error) {
	body, err := c.Raw(ctx, jsonPreamble+cmd.Name())
	if err != nil {
		var zero T
		return zero, fmt.Errorf("request %s: %w", cmd.Name(), err)
	}
	return cmd.Decode(body)
}

// RequestGeneric runs a runtime-resolved command and returns its untyped reply.
func (c *Client) RequestGeneric(ctx context.Context, cmd Descriptor) (any, error) {
	body, err := c.Raw(ctx, jsonPreamble+cmd.Name())
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", cmd.Name(), err)
	}
	return cmd.DecodeGeneric(body)
}

// Raw writes payload verbatim and returns the full reply once the server
// closes the connection. A reset while connecting or writing is retried;
// once the request is written nothing is, so a dispatch never runs twice.
func (c *Client) Raw(ctx context.Context, payload string) ([]byte, error) {
	if err := c.session.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		body, sent, err := c.exchange(ctx, payload)
		if err == nil {
			return body, nil
		}
		if sent || !isTransient(err) {
			return nil, err
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrMaxRetriesExceeded, c.attempts, lastErr)
}

// exchange runs one connection. sent reports whether payload reached the
// server before err occurred.
func (c *Client) exchange(ctx context.Context, payload string) (body []byte, sent bool, err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx, c.path)
	if err != nil {
		return nil, false, fmt.Errorf("connect %s: %w", c.path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, false, fmt.Errorf("set deadline: %w", err)
		}
	}

	if _, err := io.WriteString(conn, payload); err != nil {
		return nil, false, fmt.Errorf("write request: %w", err)
	}

	body, err = io.ReadAll(conn)
	if err != nil {
		return nil, true, fmt.Errorf("read reply: %w", err)
	}
	return body, true, nil
}

// isTransient reports the reset/closed-pipe conditions seen while the
// compositor is not yet accepting.
func isTransient(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}
