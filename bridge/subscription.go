// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"log/slog"
	"runtime"
	"sync"
)

// Subscription is the handle for one live server-push feed. The feed
// and the callback are owned by a single background goroutine; the
// handle itself only carries the cancellation trigger.
type Subscription struct {
	trigger *cancelTrigger
	done    chan struct{}
	cleanup runtime.Cleanup
}

// cancelTrigger is the single-use cancellation trigger. It lives in
// its own allocation so the runtime cleanup can fire it after the
// Subscription handle itself has become unreachable.
type cancelTrigger struct {
	once sync.Once
	ch   chan struct{}
}

func (t *cancelTrigger) fire() {
	t.once.Do(func() { close(t.ch) })
}

func newSubscription(feed Feed, callback UpdateCallback, logger *slog.Logger) *Subscription {
	trigger := &cancelTrigger{ch: make(chan struct{})}
	done := make(chan struct{})

	go runFeed(feed, callback, trigger, done, logger)

	sub := &Subscription{trigger: trigger, done: done}
	// Deterministic release for foreign callers: when the handle is
	// dropped without an explicit Cancel, cancel on its behalf. The
	// trigger is a separate allocation, so attaching the cleanup to
	// the handle is legal and the goroutine keeps the trigger alive.
	sub.cleanup = runtime.AddCleanup(sub, func(t *cancelTrigger) { t.fire() }, trigger)
	return sub
}

// Cancel fires the cancellation trigger. Fire-and-forget: it returns
// without waiting for the goroutine to exit, and calling it again —
// or after the feed already ended on its own — is a no-op.
func (s *Subscription) Cancel() {
	s.trigger.fire()
	s.cleanup.Stop()
}

// Done returns a channel closed once the subscription goroutine has
// exited and no further callback invocation can happen.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// runFeed is the subscription loop. It multiplexes feed updates and
// the cancellation trigger with cancellation checked first, so an
// update that is ready in the same scheduling step as a cancellation
// is never delivered.
func runFeed(feed Feed, callback UpdateCallback, trigger *cancelTrigger, done chan struct{}, logger *slog.Logger) {
	defer close(done)
	defer func() {
		if err := feed.Close(); err != nil {
			logger.Debug("closing subscription feed", "error", err)
		}
	}()

	for {
		// Biased check: a pending cancellation wins over a pending
		// update.
		select {
		case <-trigger.ch:
			return
		default:
		}

		select {
		case <-trigger.ch:
			return
		case result, ok := <-feed.Updates():
			if !ok {
				// Server ended the feed.
				return
			}
			// Re-check after the receive: a cancellation that fired
			// while we were blocked must suppress this delivery.
			select {
			case <-trigger.ch:
				return
			default:
			}
			switch r := result.(type) {
			case ResultValue:
				callback.Update(r.Value)
			case ResultErrorMessage:
				// A transient function error does not end the feed
				// and is not delivered to the callback.
				logger.Error("subscription update reported a function error", "message", r.Message)
			}
		}
	}
}
