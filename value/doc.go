// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

// Package value defines the closed set of value variants a Lodestone
// deployment can produce or accept, together with the strict total
// order that makes Set and Map contents canonical.
//
// The variant set is closed: [ID], [Null], [Int64], [Float64],
// [Boolean], [String], [Bytes], [Array], [Set], [Map], and [Object].
// Every deployment value maps to exactly one variant and back, so a
// value survives a round trip through the bridge unchanged.
//
// # Ordering
//
// [Compare] implements a strict total order over all values: first by
// variant (in the declaration order above), then structurally within a
// variant. Both ends of the bridge sort Set members and Map entries
// with this order, which is what makes their serialized form
// independent of insertion order.
//
// Floats are ordered by the IEEE-754 totalOrder predicate over their
// raw bit patterns rather than by the usual < operator: -NaN sorts
// below -Inf, -0.0 sorts below +0.0, and +NaN sorts above +Inf. Two
// floats compare equal only when they are bit-identical. This deviates
// from ordinary floating-point comparison on purpose — a Set must be
// able to hold both zeros, and a Map keyed by NaN must still have a
// deterministic iteration order.
//
// # Collections
//
// [Set], [Map], and [Object] are canonical by construction: their
// constructors sort, deduplicate (last insertion wins for Map and
// Object keys), and the stored order is the only order ever observed.
// [Array] is an ordered sequence and preserves whatever order it was
// built with.
//
// Nesting depth is bounded only by available memory; the package
// imposes no artificial recursion limit.
//
// # Wire interchange
//
// [ToWire] and [FromWire] convert between values and the deployment's
// interchange tree (nil, bool, float64, string, []any and
// map[string]any, with $-keyed markers for the variants the plain tree
// cannot express). The conversion is total and lossless in both
// directions; see wire.go for the marker table.
package value
