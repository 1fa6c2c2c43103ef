// Package future is a single settlement result container. A Future is resolved or rejected once; later
// settlements are ignored. Continuations attached before or after settlement run with the settled outcome.
package future

import (
	"context"
	"sync"
)

// Future is the eventual result of an operation
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	settled  bool
	value    T
	err      error
	handlers []func(T, error)
}

// New returns an unsettled future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future resolved with value
func Resolved[T any](value T) *Future[T] {
	f := New[T]()
	f.Resolve(value)
	return f
}

// Rejected returns a future rejected with err
func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Resolve settles the future with a value. It returns false if the future was already settled.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Reject settles the future with an error. It returns false if the future was already settled.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

// Settle resolves the future with value when err is nil and rejects it otherwise
func (f *Future[T]) Settle(value T, err error) bool {
	if err != nil {
		return f.Reject(err)
	}
	return f.Resolve(value)
}

func (f *Future[T]) settle(value T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.mu.Unlock()
	for _, h := range handlers {
		h(value, err)
	}
	return true
}

// Done is closed once the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Await blocks until the future settles or the context is done
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Finally runs fn with the settled outcome. If the future already settled fn runs immediately.
func (f *Future[T]) Finally(fn func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.settled {
		f.handlers = append(f.handlers, fn)
		f.mu.Unlock()
		return f
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
	return f
}

// Then runs fn with the value once the future resolves
func (f *Future[T]) Then(fn func(T)) *Future[T] {
	return f.Finally(func(value T, err error) {
		if err == nil {
			fn(value)
		}
	})
}

// Catch runs fn with the error once the future rejects
func (f *Future[T]) Catch(fn func(error)) *Future[T] {
	return f.Finally(func(_ T, err error) {
		if err != nil {
			fn(err)
		}
	})
}

// Map returns a future settled with fn applied to f's value. Rejections pass through.
func Map[T, R any](f *Future[T], fn func(T) (R, error)) *Future[R] {
	out := New[R]()
	f.Finally(func(value T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		out.Settle(fn(value))
	})
	return out
}
