// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge exposes a Lodestone deployment to a foreign runtime:
// it owns the single live connection and turns server-push
// subscription feeds into serialized callback invocations.
//
// [Bridge] is the connection handle. It is created without any network
// I/O and holds at most one live [RemoteClient] session at a time,
// guarded by one mutex: Connect, Close, Query, Mutation, Action, and
// Subscribe each hold the lock for their full duration, so the session
// is never touched concurrently from this layer. There is no automatic
// reconnection — a failed Connect leaves the handle empty and returns
// a [*ConnectError], and every data operation on an empty handle fails
// with [ErrNoActiveConnection].
//
// The network client itself is an external collaborator: callers
// supply a [DialFunc] producing a [RemoteClient]. The transport
// package provides the standard implementation.
//
// # Subscriptions
//
// Subscribe spawns one goroutine per subscription. The goroutine owns
// the feed and the callback exclusively; callback invocations are
// serialized and arrive in feed order. On each update carrying a
// value, the callback fires; an update carrying a server-side function
// error is logged and skipped — transient function errors do not end
// a feed. The feed ends when the server closes it or when the
// subscription is cancelled.
//
// Cancellation is fire-and-forget and idempotent: [Subscription.Cancel]
// fires a single-use trigger and returns without waiting for the
// goroutine to exit ([Subscription.Done] is the completion signal for
// callers that need one). The loop checks the trigger before touching
// the feed and again before every callback invocation, so no callback
// fires after cancellation has been observed. A Subscription that
// becomes unreachable without an explicit Cancel is cancelled by a
// runtime cleanup, which is the deterministic-release contract the
// foreign side relies on when its own wrapper object is destroyed.
package bridge
