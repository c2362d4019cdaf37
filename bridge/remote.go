// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"

	"github.com/lodestone-data/lodestone/value"
)

// RemoteClient is the network client collaborator: one live session
// with a deployment. The bridge serializes all access to a
// RemoteClient behind its own lock; implementations may still have
// internal concurrency (a read loop, keepalives) of their own.
type RemoteClient interface {
	// Query executes a read-only function on the deployment.
	Query(ctx context.Context, path string, args value.Object) (FunctionResult, error)
	// Mutation executes a state-changing function.
	Mutation(ctx context.Context, path string, args value.Object) (FunctionResult, error)
	// Action executes a function with side effects outside the
	// deployment.
	Action(ctx context.Context, path string, args value.Object) (FunctionResult, error)
	// Subscribe opens a server-push feed for a query. The feed stays
	// live until its Close or the session ends.
	Subscribe(ctx context.Context, path string, args value.Object) (Feed, error)
	// Close tears the session down. The session is unusable afterward.
	Close(ctx context.Context) error
}

// DialFunc establishes a new session with the deployment at address.
// The bridge calls it from Connect, once per connection attempt.
type DialFunc func(ctx context.Context, address string) (RemoteClient, error)

// Feed is one server-push update stream.
type Feed interface {
	// Updates returns the stream channel. The implementation closes
	// it when the server ends the feed or the session dies; updates
	// arrive in server order.
	Updates() <-chan FunctionResult
	// Close releases the feed and tells the server to stop pushing.
	// Safe to call more than once.
	Close() error
}

// FunctionResult is the deployment's answer to a function execution:
// either a value or an application-level error message. The closed
// union mirrors the deployment protocol.
type FunctionResult interface {
	isFunctionResult()
}

// ResultValue is a successful function result.
type ResultValue struct {
	Value value.Value
}

// ResultErrorMessage is an application-level error reported by the
// deployment function itself (as opposed to a transport failure).
type ResultErrorMessage struct {
	Message string
}

func (ResultValue) isFunctionResult()        {}
func (ResultErrorMessage) isFunctionResult() {}

// UpdateCallback is the single-method capability the foreign side
// implements to receive subscription updates. Update is invoked from
// the subscription's goroutine — never concurrently for the same
// subscription — so implementations must tolerate being called from a
// thread the foreign runtime did not create.
type UpdateCallback interface {
	Update(v value.Value)
}
