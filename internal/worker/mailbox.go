package worker

import (
	"context"
	"errors"
	"sync"
)

var errMailboxClosed = errors.New("mailbox closed")

// mailbox is an unbounded FIFO with any number of producers and consumers.
// Items pushed before close are still delivered after it.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (m *mailbox[T]) push(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errMailboxClosed
	}
	m.items = append(m.items, v)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *mailbox[T]) tryPop() (T, bool, error) {
	var zero T
	m.mu.Lock()
	if len(m.items) == 0 {
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return zero, false, errMailboxClosed
		}
		return zero, false, nil
	}
	v := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	more := len(m.items) > 0
	m.mu.Unlock()
	// Pass the wakeup on so a second waiter is not stranded behind a
	// coalesced signal.
	if more {
		m.signal()
	}
	return v, true, nil
}

func (m *mailbox[T]) recv(ctx context.Context) (T, error) {
	for {
		v, ok, err := m.tryPop()
		if ok || err != nil {
			return v, err
		}
		select {
		case <-m.ready:
		case <-m.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

func (m *mailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
