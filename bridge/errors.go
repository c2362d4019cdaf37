// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
)

// ErrNoActiveConnection reports a data or subscription operation on a
// handle with no live session. The caller recovers by calling Connect
// first; the bridge never retries internally.
var ErrNoActiveConnection = errors.New("bridge: no active connection")

// RemoteFunctionError is an application-level error reported by the
// deployment function that ran. The message is surfaced verbatim.
// Extract with errors.As:
//
//	var remoteErr *bridge.RemoteFunctionError
//	if errors.As(err, &remoteErr) { ... }
type RemoteFunctionError struct {
	// Path is the function that reported the error.
	Path string
	// Message is the deployment's error text, unmodified.
	Message string
}

func (e *RemoteFunctionError) Error() string {
	return fmt.Sprintf("bridge: remote function %q: %s", e.Path, e.Message)
}

// ConnectError reports a failed connection attempt. The handle is
// left with no session; whether that is fatal is the caller's call.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("bridge: connecting to %s: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError reports a session-level failure during a data
// operation: the request may or may not have reached the deployment.
// The session is not torn down automatically — the caller decides
// whether to Close and reconnect.
type TransportError struct {
	// Op is the operation that failed: "query", "mutation", "action",
	// or "subscribe".
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bridge: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
