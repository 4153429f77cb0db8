// Package broadcast provides a bounded, lossy, multi-consumer fan-out channel.
//
// Every Subscription owns a ring buffer of the broadcaster's capacity. Publish
// never blocks: when a subscriber's ring is full, its OLDEST unread item is
// overwritten and the subscriber's Dropped counter is incremented. A slow or
// absent consumer therefore only loses its own backlog and never stalls
// delivery to the others. Subscriptions only observe items published after
// Subscribe returned.
package broadcast

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Recv once the broadcaster is closed and the
// subscription backlog is drained, or after the subscription itself is closed.
var ErrClosed = errors.New("broadcast channel closed")

// Broadcaster fans published values out to every live Subscription.
type Broadcaster[T any] struct {
	mu       sync.RWMutex
	subs     map[*Subscription[T]]struct{}
	capacity int
	closed   bool
}

// New creates a broadcaster whose subscriptions each buffer up to capacity items.
func New[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster[T]{
		subs:     make(map[*Subscription[T]]struct{}),
		capacity: capacity,
	}
}

// Capacity reports the per-subscriber backlog bound.
func (b *Broadcaster[T]) Capacity() int {
	return b.capacity
}

// Subscribe registers a new independent reader.
// Subscribing to a closed broadcaster yields an already-closed subscription.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		owner:  b,
		ring:   make([]T, b.capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closed = true
		close(sub.done)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers v to every subscription and returns how many were reached.
// Zero receivers is not an error.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	for sub := range b.subs {
		sub.push(v)
	}
	return len(b.subs)
}

// Close marks the broadcaster closed. Subscribers drain what they already
// buffered, then Recv returns ErrClosed.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.shutdown()
	}
	b.subs = nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Subscription is one reader's view of a Broadcaster.
type Subscription[T any] struct {
	owner *Broadcaster[T]

	mu      sync.Mutex
	ring    []T
	head    int
	size    int
	dropped uint64
	closed  bool

	// notify wakes one waiter per push; done releases every waiter on close.
	notify chan struct{}
	done   chan struct{}
}

// Recv blocks until an item is available, the broadcaster closes, or ctx ends.
// Concurrent Recv calls on one Subscription compete for items.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, ok, err := s.TryRecv()
		if ok {
			if s.Len() > 0 {
				s.wake()
			}
			return v, nil
		}
		if err != nil {
			return v, err
		}

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryRecv pops the oldest buffered item without blocking.
// ok is false when nothing is buffered; err is ErrClosed once drained and closed.
func (s *Subscription[T]) TryRecv() (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.size > 0 {
		v := s.ring[s.head]
		s.ring[s.head] = zero
		s.head = (s.head + 1) % len(s.ring)
		s.size--
		return v, true, nil
	}
	if s.closed {
		return zero, false, ErrClosed
	}
	return zero, false, nil
}

// Dropped reports how many items were overwritten before this reader saw them.
func (s *Subscription[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Len reports the number of buffered, unread items.
func (s *Subscription[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Close detaches the subscription and discards its backlog.
func (s *Subscription[T]) Close() {
	s.owner.remove(s)

	s.mu.Lock()
	var zero T
	for i := range s.ring {
		s.ring[i] = zero
	}
	s.size = 0
	s.mu.Unlock()
	s.shutdown()
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	n := len(s.ring)
	if s.size == n {
		// Overwrite the oldest unread item.
		s.ring[s.head] = v
		s.head = (s.head + 1) % n
		s.dropped++
	} else {
		s.ring[(s.head+s.size)%n] = v
		s.size++
	}
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Subscription[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
