// Package scheduler runs tasks one at a time, in submission order, on a single worker goroutine.
package scheduler

import (
	"context"
	"sync"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/machine/v4"
)

// Task is a unit of work run by the scheduler's worker
type Task func(ctx context.Context)

// Scheduler is a FIFO task queue drained by one worker. Tasks may submit further tasks, which run after
// everything already queued.
type Scheduler struct {
	mu      sync.Mutex
	queue   []Task
	wake    chan struct{}
	closing bool
	stopped bool
	done    chan struct{}
}

// New starts a scheduler whose worker runs on m until ctx is cancelled or Close drains the queue
func New(ctx context.Context, m machine.Machine) *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	m.Go(ctx, func(ctx context.Context) error {
		defer s.stop()
		s.run(ctx)
		return nil
	})
	return s
}

// Submit queues a task. It fails once the worker has stopped.
func (s *Scheduler) Submit(task Task) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return errors.New(errors.Internal, "scheduler is stopped")
	}
	s.queue = append(s.queue, task)
	s.mu.Unlock()
	s.signal()
	return nil
}

// Len returns the number of queued tasks
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close lets the worker finish every queued task, including tasks queued while draining, then stop.
// It blocks until the worker has stopped or ctx is done.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) next() (Task, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false, s.closing
	}
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return task, true, false
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		task, ok, closing := s.next()
		if ok {
			task(ctx)
			continue
		}
		if closing {
			return
		}
		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()
	close(s.done)
}
