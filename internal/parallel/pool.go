// Package parallel is a fixed-size worker pool handing out one future per
// submitted task.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	ErrPoolClosed = errors.New("pool closed")
	ErrTaskPanic  = errors.New("task panicked")
)

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int

	active    atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Workers   int
	Active    int32
	Completed int64
	Failed    int64
}

// NewPool starts a pool. A non-positive size uses one worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan func()), workers: workers}
	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.active.Add(1)
		task()
		p.active.Add(-1)
	}
}

func (p *Pool) Size() int { return p.workers }

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the task finished.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Wait blocks until the task finished or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit queues fn. It blocks while all workers are busy. A panic inside fn
// is returned as ErrTaskPanic by the future.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	task := func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v\n%s", ErrTaskPanic, r, debug.Stack())
			}
			if f.err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
		}()
		f.val, f.err = fn()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		f.err = ErrPoolClosed
		close(f.done)
		return f
	}
	p.tasks <- task
	return f
}
