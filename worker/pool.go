// Package worker runs inbound events as independent tasks. Tasks sharing a key
// run one at a time in submission order; tasks with different keys may run in
// parallel.
package worker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultLanes = 4
	DefaultDepth = 16
)

var ErrClosed = errors.New("worker pool closed")

type Task struct {
	Key int64
	Run func(ctx context.Context)
}

// Pool is a fixed set of lanes, each drained by one goroutine. A task's lane is
// derived from its key, which keeps per-key ordering without per-key goroutines.
// Keys that hash to the same lane share it, so a slow task also delays
// unrelated keys on that lane.
type Pool struct {
	lanes []chan Task
	done  chan struct{}

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

func NewPool(lanes, depth int) *Pool {
	if lanes <= 0 {
		lanes = DefaultLanes
	}
	if depth < 0 {
		depth = DefaultDepth
	}

	p := &Pool{
		lanes: make([]chan Task, lanes),
		done:  make(chan struct{}),
	}
	for i := range p.lanes {
		p.lanes[i] = make(chan Task, depth)
	}
	return p
}

// Run drains the lanes until Close is called and every queued task has run.
// ctx is handed to each task; cancelling it does not stop the draining.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, lane := range p.lanes {
		g.Go(func() error {
			for task := range lane {
				task.Run(gctx)
			}
			return nil
		})
	}
	return g.Wait()
}

// Submit queues the task on its lane, blocking while the lane is full. A
// blocked Submit returns ErrClosed once Close is called.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task.Run == nil {
		return errors.New("worker: task has no Run func")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	select {
	case p.lanes[p.lane(task.Key)] <- task:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Already queued tasks still run. Lanes are
// closed only after every pending Submit has returned.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.inflight.Wait()
	for _, lane := range p.lanes {
		close(lane)
	}
}

func (p *Pool) Lanes() int {
	return len(p.lanes)
}

func (p *Pool) lane(key int64) int {
	return int(uint64(key) % uint64(len(p.lanes)))
}
