// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lodestone-data/lodestone/value"
)

// Config holds what a Bridge needs at construction time.
type Config struct {
	// Address is the deployment URL. Stored, not contacted — Connect
	// performs the first network I/O.
	Address string

	// Dial establishes a session. Required.
	Dial DialFunc

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Subscription-level server errors are logged here at
	// Error level; lifecycle events at Debug.
	Logger *slog.Logger
}

// Bridge is the connection handle: at most one live session, all
// access serialized through one lock.
type Bridge struct {
	address string
	dial    DialFunc
	logger  *slog.Logger

	// mu guards session. It is held for the full duration of every
	// operation, including the remote await, which is what gives the
	// session single-caller semantics.
	mu      sync.Mutex
	session RemoteClient
}

// New creates a Bridge. Pure construction: no network I/O happens
// until Connect.
func New(config Config) (*Bridge, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("bridge: Address is required")
	}
	if config.Dial == nil {
		return nil, fmt.Errorf("bridge: Dial is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		address: config.Address,
		dial:    config.Dial,
		logger:  logger,
	}, nil
}

// Address returns the configured deployment URL.
func (b *Bridge) Address() string { return b.address }

// Connect establishes a session with the deployment. Any previous
// session is closed and discarded first, so after a failed attempt the
// handle is empty — it does not keep a stale session around. Failure
// is returned as a [*ConnectError]; the caller decides whether that is
// fatal.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		if err := b.session.Close(ctx); err != nil {
			b.logger.Debug("closing previous session before reconnect", "error", err)
		}
		b.session = nil
	}

	session, err := b.dial(ctx, b.address)
	if err != nil {
		return &ConnectError{Address: b.address, Err: err}
	}
	b.session = session
	b.logger.Debug("session established", "address", b.address)
	return nil
}

// Close discards the live session, if any. Idempotent: closing an
// empty handle is a no-op.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	session := b.session
	b.session = nil
	if err := session.Close(ctx); err != nil {
		return fmt.Errorf("bridge: closing session: %w", err)
	}
	return nil
}

// Connected reports whether a live session is installed.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session != nil
}

// Query executes a read-only deployment function and returns its
// value. Fails with [ErrNoActiveConnection] without a session, a
// [*TransportError] when the session-level call fails, and a
// [*RemoteFunctionError] when the function itself reports an error.
func (b *Bridge) Query(ctx context.Context, path string, args value.Object) (value.Value, error) {
	return b.call(ctx, "query", path, func(session RemoteClient) (FunctionResult, error) {
		return session.Query(ctx, path, args)
	})
}

// Mutation executes a state-changing deployment function. Same
// failure modes as Query.
func (b *Bridge) Mutation(ctx context.Context, path string, args value.Object) (value.Value, error) {
	return b.call(ctx, "mutation", path, func(session RemoteClient) (FunctionResult, error) {
		return session.Mutation(ctx, path, args)
	})
}

// Action executes a deployment action. Same failure modes as Query.
func (b *Bridge) Action(ctx context.Context, path string, args value.Object) (value.Value, error) {
	return b.call(ctx, "action", path, func(session RemoteClient) (FunctionResult, error) {
		return session.Action(ctx, path, args)
	})
}

func (b *Bridge) call(ctx context.Context, op, path string, fn func(RemoteClient) (FunctionResult, error)) (value.Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, ErrNoActiveConnection
	}
	result, err := fn(b.session)
	if err != nil {
		return nil, &TransportError{Op: op, Path: path, Err: err}
	}
	switch r := result.(type) {
	case ResultValue:
		return r.Value, nil
	case ResultErrorMessage:
		return nil, &RemoteFunctionError{Path: path, Message: r.Message}
	default:
		return nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("unknown result %T", result)}
	}
}

// Subscribe opens a server-push feed for a query and spawns the
// subscription goroutine that drives callback. The returned handle
// cancels the subscription explicitly via Cancel, or automatically
// when it becomes unreachable.
func (b *Bridge) Subscribe(ctx context.Context, path string, args value.Object, callback UpdateCallback) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, ErrNoActiveConnection
	}
	feed, err := b.session.Subscribe(ctx, path, args)
	if err != nil {
		return nil, &TransportError{Op: "subscribe", Path: path, Err: err}
	}
	return newSubscription(feed, callback, b.logger.With("subscription_path", path)), nil
}
