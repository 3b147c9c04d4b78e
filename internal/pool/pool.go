// Package pool implements a bounded worker pool for blocking operations.
// A fixed number of workers drain a FIFO queue; submissions are queued, never
// rejected, and a panic in one operation does not affect the others.
package pool

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultQueueSize is the buffered capacity of the task queue. Submit blocks
// (still queueing, never dropping) once this many tasks are waiting.
const DefaultQueueSize = 1024

// Task is the handle returned by Submit. Wait blocks until the submitted
// operation has finished, whether it returned normally or panicked.
type Task struct {
	done chan struct{}
}

// Wait blocks until the operation has completed.
func (t *Task) Wait() {
	<-t.done
}

// Pool runs submitted operations on a fixed set of worker goroutines.
type Pool struct {
	queue chan job
	size  int

	mu     sync.Mutex
	active int

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	fn   func()
	task *Task
}

// New creates a pool with the given number of workers. Sizes below 1 are
// clamped to 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		queue: make(chan job, DefaultQueueSize),
		size:  size,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit enqueues an operation and returns a handle the caller may wait on.
// Submitting to a closed pool panics, matching the underlying channel send.
func (p *Pool) Submit(fn func()) *Task {
	t := &Task{done: make(chan struct{})}
	p.queue <- job{fn: fn, task: t}
	return t
}

// Size returns the configured worker count.
func (p *Pool) Size() int {
	return p.size
}

// Active returns the number of operations currently executing.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close stops accepting work and blocks until queued operations have drained.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for j := range p.queue {
		p.mu.Lock()
		p.active++
		p.mu.Unlock()

		p.run(j)

		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}
}

func (p *Pool) run(j job) {
	defer close(j.task.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker recovered from panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	j.fn()
}
