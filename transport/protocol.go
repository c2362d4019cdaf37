// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// Envelope type names of the sync protocol. These are wire constants.
const (
	msgHello       = "hello"
	msgHelloOK     = "hello_ok"
	msgQuery       = "query"
	msgMutation    = "mutation"
	msgAction      = "action"
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgResult      = "result"
	msgUpdate      = "update"
	msgComplete    = "complete"
)

// protocolVersion is sent in the hello envelope; the server rejects
// versions it does not speak.
const protocolVersion = 1

// Result status values. An explicit status field rather than "value
// present" because Null is a legitimate function result.
const (
	statusValue = "value"
	statusError = "error"
)

// clientEnvelope is every client-to-server message. Fields are
// omitted when empty, so each message type carries only its own.
type clientEnvelope struct {
	Type           string   `cbor:"type"`
	Version        int      `cbor:"version,omitempty"`
	SessionID      string   `cbor:"session_id,omitempty"`
	Compression    []string `cbor:"compression,omitempty"`
	RequestID      string   `cbor:"request_id,omitempty"`
	SubscriptionID string   `cbor:"subscription_id,omitempty"`
	Path           string   `cbor:"path,omitempty"`
	Args           any      `cbor:"args,omitempty"`
}

// serverEnvelope is every server-to-client message.
type serverEnvelope struct {
	Type           string `cbor:"type"`
	SessionID      string `cbor:"session_id,omitempty"`
	Compression    string `cbor:"compression,omitempty"`
	RequestID      string `cbor:"request_id,omitempty"`
	SubscriptionID string `cbor:"subscription_id,omitempty"`
	Status         string `cbor:"status,omitempty"`
	Value          any    `cbor:"value,omitempty"`
	ErrorMessage   string `cbor:"error_message,omitempty"`
}
