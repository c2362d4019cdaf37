// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lodestone-data/lodestone/bridge"
)

// feedBuffer is the per-subscription update backlog. A reactive query
// only ever needs its latest result, so the buffer exists to absorb
// bursts, not to preserve history.
const feedBuffer = 16

// feed is one server-push subscription stream. It implements
// [bridge.Feed]. The read loop is the only sender on updates and the
// only closer of it (via finish), so the channel discipline is safe.
type feed struct {
	client         *Client
	subscriptionID string
	updates        chan bridge.FunctionResult

	mu       sync.Mutex
	finished bool

	closeOnce sync.Once
}

func newFeed(client *Client, subscriptionID string) *feed {
	return &feed{
		client:         client,
		subscriptionID: subscriptionID,
		updates:        make(chan bridge.FunctionResult, feedBuffer),
	}
}

// Updates returns the stream channel. It is closed when the server
// completes the subscription, the feed is closed, or the connection
// dies.
func (f *feed) Updates() <-chan bridge.FunctionResult {
	return f.updates
}

// Close unregisters the feed, tells the server to stop pushing, and
// ends the stream. Safe to call more than once, and after the stream
// has already ended.
func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		f.client.forgetFeed(f.subscriptionID)
		// Fire and forget: if the write fails the connection is dying
		// and the server-side subscription dies with it.
		err := f.client.write(clientEnvelope{
			Type:           msgUnsubscribe,
			SubscriptionID: f.subscriptionID,
		})
		if err != nil && err != websocket.ErrCloseSent {
			f.client.logger.Debug("unsubscribe write failed",
				"subscription_id", f.subscriptionID,
				"error", err)
		}
		f.finish()
	})
	return nil
}

// deliver pushes an update into the stream, dropping the oldest
// undelivered update when the subscriber has fallen behind. Called
// only from the read loop.
func (f *feed) deliver(result bridge.FunctionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return
	}
	select {
	case f.updates <- result:
	default:
		// Buffer full. Drop the oldest entry; the slot that frees (or
		// one the subscriber freed in the meantime) takes the new
		// update. The read loop is the only sender, so this cannot
		// block.
		select {
		case <-f.updates:
		default:
		}
		f.updates <- result
	}
}

// finish ends the stream. Idempotent; callers race between the read
// loop (complete envelope, connection death) and Close.
func (f *feed) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return
	}
	f.finished = true
	close(f.updates)
}
