// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Lodestone's standard CBOR encoding
// configuration.
//
// Lodestone uses two serialization formats with a clear boundary:
//
//   - CBOR for the sync protocol: every envelope exchanged with a
//     deployment, including the document trees carried in argument and
//     result fields.
//   - JSON and YAML for tooling surfaces: CLI output, configuration
//     files, and generated binding descriptions.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Lodestone package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, which keeps protocol traces diffable and lets tests compare
// encodings directly.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(envelope)
//	err = codec.Unmarshal(data, &envelope)
//
// Document trees round-tripped through any-typed fields decode with
// map[string]any as the map type, matching the interchange form the
// value package produces and consumes.
package codec
