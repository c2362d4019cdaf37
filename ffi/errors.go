// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package ffi

import "errors"

var (
	// ErrTruncatedInput reports a buffer that ended before the bytes a
	// length prefix or fixed-width field declared. Check with errors.Is.
	ErrTruncatedInput = errors.New("ffi: truncated input")

	// ErrCodecOverflow reports a collection, string, or byte sequence
	// too long for the signed 32-bit length prefix.
	ErrCodecOverflow = errors.New("ffi: length exceeds the 32-bit wire limit")

	// ErrInvalidTag reports a variant tag outside the closed set.
	ErrInvalidTag = errors.New("ffi: invalid variant tag")

	// ErrNegativeLength reports a negative length prefix, which no
	// conforming encoder produces.
	ErrNegativeLength = errors.New("ffi: negative length prefix")

	// ErrTrailingBytes reports leftover bytes after the single
	// top-level value a boundary buffer is defined to carry.
	ErrTrailingBytes = errors.New("ffi: trailing bytes after value")
)
