// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"cmp"
	"math"
)

// Compare implements the strict total order over all values: first by
// variant rank (the [Kind] declaration order), then structurally
// within a variant. Collections compare element-wise in their stored
// order, with length as the tie-breaker — the same order a
// lexicographic comparison of their canonical serializations would
// produce.
//
// The result is -1, 0, or +1. Compare(a, b) == 0 exactly when a and b
// are structurally identical; this is the equality used by [Set] and
// [Map] for deduplication.
func Compare(a, b Value) int {
	if a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}

	switch av := a.(type) {
	case ID:
		return cmp.Compare(av, b.(ID))
	case Null:
		return 0
	case Int64:
		return cmp.Compare(av, b.(Int64))
	case Float64:
		return cmp.Compare(totalOrderKey(float64(av)), totalOrderKey(float64(b.(Float64))))
	case Boolean:
		return compareBool(bool(av), bool(b.(Boolean)))
	case String:
		return cmp.Compare(av, b.(String))
	case Bytes:
		return bytes.Compare(av, b.(Bytes))
	case Array:
		return compareValues(av, b.(Array))
	case Set:
		return compareValues(av.members, b.(Set).members)
	case Map:
		return compareEntries(av.entries, b.(Map).entries)
	case Object:
		return compareFields(av.fields, b.(Object).fields)
	default:
		panic("value: Compare on unknown variant")
	}
}

// Equal reports whether a and b are structurally identical under the
// total order.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// totalOrderKey maps a float to an unsigned integer whose natural
// order is the IEEE-754 totalOrder of the float: flip all bits of
// negative values, flip only the sign bit of non-negative ones. The
// mapping is a bijection, so distinct bit patterns (including -0.0
// versus +0.0 and differing NaN payloads) never collide.
func totalOrderKey(f float64) uint64 {
	b := math.Float64bits(f)
	if b&(1<<63) != 0 {
		return ^b
	}
	return b | 1<<63
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareValues(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareEntries(a, b []MapEntry) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i].Key, b[i].Key); c != 0 {
			return c
		}
		if c := Compare(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareFields(a, b []Field) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmp.Compare(a[i].Name, b[i].Name); c != 0 {
			return c
		}
		if c := Compare(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
