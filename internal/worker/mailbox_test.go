package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxDeliversInOrderAcrossClose(t *testing.T) {
	box := newMailbox[int]()
	for i := 1; i <= 3; i++ {
		require.NoError(t, box.push(i))
	}
	box.close()
	require.ErrorIs(t, box.push(4), errMailboxClosed)

	for i := 1; i <= 3; i++ {
		v, err := box.recv(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	_, err := box.recv(context.Background())
	require.ErrorIs(t, err, errMailboxClosed)
}

func TestMailboxWakesEveryWaiter(t *testing.T) {
	box := newMailbox[int]()
	const waiters = 4

	var wg sync.WaitGroup
	got := make(chan int, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			v, err := box.recv(ctx)
			if err == nil {
				got <- v
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	for i := 0; i < waiters; i++ {
		require.NoError(t, box.push(i))
	}
	wg.Wait()
	close(got)

	seen := map[int]bool{}
	for v := range got {
		seen[v] = true
	}
	require.Len(t, seen, waiters)
}

func TestMailboxRecvHonorsContext(t *testing.T) {
	box := newMailbox[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := box.recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxTryPop(t *testing.T) {
	box := newMailbox[string]()
	_, ok, err := box.tryPop()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, box.push("a"))
	v, ok, err := box.tryPop()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", v)

	box.close()
	_, _, err = box.tryPop()
	require.ErrorIs(t, err, errMailboxClosed)
}
