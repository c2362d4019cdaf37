// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the Lodestone sync protocol: the
// standard [bridge.RemoteClient] over a websocket connection.
//
// The protocol exchanges CBOR envelopes (deterministic encoding, so
// identical requests produce identical bytes) as binary websocket
// messages. Each message is a frame: a one-byte compression tag,
// followed for compressed frames by the 4-byte big-endian uncompressed
// size, followed by the payload. Compression is negotiated once at
// hello time — the client offers the algorithms it speaks (zstd, lz4)
// and the server picks one or none — and applies only to frames above
// a size threshold; a peer must nevertheless accept any tagged frame.
//
// Requests (query, mutation, action) are correlated to their result
// envelopes by UUID, so any number of calls can be in flight on the
// one connection. Subscriptions are registered under their own UUID;
// the read loop demultiplexes pushed update envelopes into a
// per-subscription feed. A feed's updates channel is bounded: when a
// subscriber falls behind, the oldest undelivered update is dropped in
// favor of the newest, matching the latest-value semantics of a
// reactive query. The server signals the natural end of a feed with a
// complete envelope, which closes the updates channel.
//
// Function arguments and results travel as the interchange tree of
// [value.ToWire] and [value.FromWire], embedded in the envelope.
//
// Timeouts and retries are deliberately absent here beyond the dial
// handshake: per-call deadlines come from the caller's context, and
// reconnection policy belongs to whoever owns the [bridge.Bridge].
package transport
