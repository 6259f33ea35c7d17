package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startPool(t *testing.T, p *Pool) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()
	return errCh
}

func TestPool_SameKeyRunsInOrder(t *testing.T) {
	p := NewPool(4, 8)
	errCh := startPool(t, p)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		err := p.Submit(context.Background(), Task{Key: 7, Run: func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}})
		require.NoError(t, err)
	}

	p.Close()
	require.NoError(t, <-errCh)

	require.Len(t, got, 50)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestPool_DifferentKeysRunConcurrently(t *testing.T) {
	p := NewPool(2, 1)
	errCh := startPool(t, p)

	release := make(chan struct{})
	blocked := make(chan struct{})
	done := make(chan struct{})

	// key 0 and key 1 land on different lanes
	require.NoError(t, p.Submit(context.Background(), Task{Key: 0, Run: func(context.Context) {
		close(blocked)
		<-release
	}}))
	<-blocked

	require.NoError(t, p.Submit(context.Background(), Task{Key: 1, Run: func(context.Context) {
		close(done)
	}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task on another lane was blocked by a slow chat")
	}

	close(release)
	p.Close()
	require.NoError(t, <-errCh)
}

func TestPool_NegativeKeys(t *testing.T) {
	p := NewPool(3, 0)
	for _, key := range []int64{-1, -100200300, -9223372036854775808} {
		lane := p.lane(key)
		require.GreaterOrEqual(t, lane, 0)
		require.Less(t, lane, 3)
	}
}

func TestPool_CloseDrainsQueued(t *testing.T) {
	p := NewPool(1, 10)

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), Task{Key: 1, Run: func(context.Context) {
			mu.Lock()
			ran++
			mu.Unlock()
		}}))
	}
	p.Close()

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, 5, ran)
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(1, 1)
	p.Close()
	p.Close()

	err := p.Submit(context.Background(), Task{Key: 1, Run: func(context.Context) {}})
	require.ErrorIs(t, err, ErrClosed)
}

func TestPool_SubmitRespectsContextWhenFull(t *testing.T) {
	p := NewPool(1, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, Task{Key: 1, Run: func(context.Context) {}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_SubmitWithoutRun(t *testing.T) {
	p := NewPool(1, 1)
	require.Error(t, p.Submit(context.Background(), Task{Key: 1}))
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(0, -1)
	require.Equal(t, DefaultLanes, p.Lanes())
	require.Equal(t, DefaultDepth, cap(p.lanes[0]))
}

func TestPool_CloseUnblocksPendingSubmit(t *testing.T) {
	p := NewPool(1, 0)
	errCh := startPool(t, p)

	running := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), Task{Key: 1, Run: func(context.Context) {
		close(running)
		<-release
	}}))
	<-running

	submitErr := make(chan error, 1)
	go func() {
		submitErr <- p.Submit(context.Background(), Task{Key: 1, Run: func(context.Context) {}})
	}()

	// let the second Submit park on the busy lane
	time.Sleep(50 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind a Submit waiting on a busy lane")
	}
	require.ErrorIs(t, <-submitErr, ErrClosed)

	close(release)
	require.NoError(t, <-errCh)
}
