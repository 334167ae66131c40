package playback

import (
	"context"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs delayed calls on the UI-affine context.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// DispatchScheduler fires timers with time.AfterFunc and hands the callback
// to Dispatch, e.g. fyne.Do or Loop.Dispatch.
type DispatchScheduler struct {
	Dispatch func(func())
}

// AfterFunc implements Scheduler.
func (s DispatchScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() {
		s.Dispatch(fn)
	})
}

// Loop is a serial executor standing in for a UI thread in headless use.
type Loop struct {
	calls chan func()
}

// NewLoop creates a loop; call Run to execute queued calls.
func NewLoop() *Loop {
	return &Loop{calls: make(chan func(), 64)}
}

// Dispatch queues fn for execution on the loop.
func (l *Loop) Dispatch(fn func()) {
	l.calls <- fn
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.calls <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued calls until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case fn := <-l.calls:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Scheduler returns a Scheduler dispatching onto the loop.
func (l *Loop) Scheduler() Scheduler {
	return DispatchScheduler{Dispatch: l.Dispatch}
}
