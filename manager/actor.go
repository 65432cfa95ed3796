package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the number of operations an actor buffers.
const DefaultQueueSize = 100

// operation is a unit of work executed by an actor.
type operation struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

type actorKey struct{}

// actor serializes all operations against one Environment through a
// single goroutine.
//
// Operations receive a context marked with the actor. An operation that
// calls back into its own Manager with that context runs inline instead
// of queueing behind itself.
type actor struct {
	queue  chan *operation
	closed atomic.Bool
	done   chan struct{}
	exited chan struct{}

	closeOnce sync.Once
}

func newActor(queueSize int) *actor {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	a := &actor{
		queue:  make(chan *operation, queueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go a.run()
	return a
}

// run processes operations until the actor is closed.
func (a *actor) run() {
	defer close(a.exited)
	for {
		select {
		case <-a.done:
			a.drainQueue(ErrManagerClosed)
			return
		case op := <-a.queue:
			op.result <- a.execute(op)
			close(op.result)
		}
	}
}

// execute runs a single operation with panic recovery.
func (a *actor) execute(op *operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = fmt.Errorf("manager operation panicked: %w", v)
			default:
				err = fmt.Errorf("manager operation panicked: %v", v)
			}
		}
	}()
	return op.fn(op.ctx)
}

// drainQueue fails every queued operation with err.
func (a *actor) drainQueue(err error) {
	for {
		select {
		case op := <-a.queue:
			op.result <- err
			close(op.result)
		default:
			return
		}
	}
}

// inside reports whether ctx belongs to an operation running on a.
func (a *actor) inside(ctx context.Context) bool {
	owner, _ := ctx.Value(actorKey{}).(*actor)
	return owner == a
}

// Do runs fn on the actor goroutine and waits for it to finish.
func (a *actor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.inside(ctx) {
		return fn(ctx)
	}
	if a.closed.Load() {
		return ErrManagerClosed
	}

	op := &operation{
		ctx:    context.WithValue(ctx, actorKey{}, a),
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrManagerClosed
	case a.queue <- op:
	}

	// A queued operation is awaited even when ctx ends.
	select {
	case err, ok := <-op.result:
		if !ok {
			return ErrManagerClosed
		}
		return err
	case <-a.exited:
		// run may have finished op just before exiting
		select {
		case err, ok := <-op.result:
			if ok {
				return err
			}
		default:
		}
		return ErrManagerClosed
	}
}

// Close stops the actor after the operation in progress. Queued
// operations fail with ErrManagerClosed.
func (a *actor) Close() {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		close(a.done)
	})
}

// Wait blocks until the actor goroutine has exited.
func (a *actor) Wait() {
	<-a.exited
}

// IsClosed returns true if the actor has been closed.
func (a *actor) IsClosed() bool {
	return a.closed.Load()
}
