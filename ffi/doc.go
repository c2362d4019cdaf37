// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package ffi implements the binary encoding that carries values
// across the foreign-language boundary, plus the static shape metadata
// the binding generator consumes.
//
// # Encoding
//
// Every value is self-delimiting. All fixed-width integers are
// big-endian. A value starts with its variant tag (the [value.Kind]
// numeric, a 4-byte signed integer), followed by the variant payload:
//
//	Id       i32 length + UTF-8 bytes
//	Null     (no payload)
//	Int64    i64
//	Float64  8 raw IEEE-754 bytes
//	Boolean  1 byte, 0 or 1
//	String   i32 length + UTF-8 bytes
//	Bytes    i32 length + raw bytes
//	Array    i32 count + that many encoded values
//	Set      i32 count + that many encoded members
//	Map      i32 count + that many encoded key, value pairs
//	Object   i32 count + that many (i32 length + name bytes, value) pairs
//
// Collections are written in canonical order (the value package keeps
// them canonical), so two equal Sets or Maps always produce identical
// bytes. Decoding re-canonicalizes regardless of the order the peer
// wrote, which means re-encoding a decoded value is byte-identical
// even when the producer was sloppy.
//
// Length prefixes are signed 32-bit by contract with the foreign side:
// encoding anything longer than 2^31-1 elements or bytes fails with
// [ErrCodecOverflow] rather than truncating. Decoding fails with
// [ErrTruncatedInput] whenever the buffer holds fewer bytes than a
// prefix declares; it never yields a value from a short buffer.
// Decoding is all-or-nothing per top-level value: on any error,
// [DecodeValue] returns nothing.
//
// # Shape metadata
//
// [VariantTable] describes each variant's payload as a sequence of
// [ShapeCode] tags. The foreign binding generator compiles this table
// into the peer's type definitions, so the table must describe exactly
// what the runtime codec does — a mismatch surfaces as a compile-time
// desync of the generated bindings, not as a runtime error. The shape
// tests cross-check the table against the codec.
package ffi
