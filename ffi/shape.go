// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package ffi

import "github.com/lodestone-data/lodestone/value"

// ShapeCode is one tag in a shape sequence. Shape sequences describe
// the payload layout of each variant to the foreign binding generator.
// These values are protocol constants shared with every generated
// binding — never renumber them.
type ShapeCode byte

const (
	// ShapeValue marks a recursive occurrence of the Value sum type
	// itself.
	ShapeValue ShapeCode = 0x01
	// ShapeString marks an i32-length-prefixed UTF-8 string.
	ShapeString ShapeCode = 0x02
	// ShapeInt64 marks a big-endian i64.
	ShapeInt64 ShapeCode = 0x03
	// ShapeFloat64 marks 8 raw IEEE-754 bytes.
	ShapeFloat64 ShapeCode = 0x04
	// ShapeBool marks a single 0-or-1 byte.
	ShapeBool ShapeCode = 0x05
	// ShapeBytes marks an i32-length-prefixed byte run.
	ShapeBytes ShapeCode = 0x06
	// ShapeVec marks an i32-count prefix followed by that many
	// occurrences of the next shape. Array and Set share this code:
	// a Set is a Vec whose canonical ordering is a runtime invariant,
	// not a wire-level distinction.
	ShapeVec ShapeCode = 0x07
	// ShapeMapOf marks an i32-count prefix followed by that many
	// pairs of the next two shapes. Map and Object share this code
	// the same way Array and Set share ShapeVec.
	ShapeMapOf ShapeCode = 0x08
)

// String returns the shape tag name used in binding generator output.
func (c ShapeCode) String() string {
	switch c {
	case ShapeValue:
		return "value"
	case ShapeString:
		return "string"
	case ShapeInt64:
		return "int64"
	case ShapeFloat64:
		return "float64"
	case ShapeBool:
		return "bool"
	case ShapeBytes:
		return "bytes"
	case ShapeVec:
		return "vec"
	case ShapeMapOf:
		return "map"
	default:
		return "unknown"
	}
}

// VariantShape describes one variant of the Value sum type: its wire
// tag and the shape sequence of its payload.
type VariantShape struct {
	Name    string
	Tag     int32
	Payload []ShapeCode
}

// VariantTable returns the shape of every variant, in tag order. The
// binding generator compiles this table into the foreign-side type
// definitions; the table is checked against the runtime codec by the
// package tests, because a drift between the two desynchronizes the
// peers at binding-compile time.
func VariantTable() []VariantShape {
	return []VariantShape{
		{Name: "Id", Tag: int32(value.KindID), Payload: []ShapeCode{ShapeString}},
		{Name: "Null", Tag: int32(value.KindNull), Payload: nil},
		{Name: "Int64", Tag: int32(value.KindInt64), Payload: []ShapeCode{ShapeInt64}},
		{Name: "Float64", Tag: int32(value.KindFloat64), Payload: []ShapeCode{ShapeFloat64}},
		{Name: "Boolean", Tag: int32(value.KindBoolean), Payload: []ShapeCode{ShapeBool}},
		{Name: "String", Tag: int32(value.KindString), Payload: []ShapeCode{ShapeString}},
		{Name: "Bytes", Tag: int32(value.KindBytes), Payload: []ShapeCode{ShapeBytes}},
		{Name: "Array", Tag: int32(value.KindArray), Payload: []ShapeCode{ShapeVec, ShapeValue}},
		{Name: "Set", Tag: int32(value.KindSet), Payload: []ShapeCode{ShapeVec, ShapeValue}},
		{Name: "Map", Tag: int32(value.KindMap), Payload: []ShapeCode{ShapeMapOf, ShapeValue, ShapeValue}},
		{Name: "Object", Tag: int32(value.KindObject), Payload: []ShapeCode{ShapeMapOf, ShapeString, ShapeValue}},
	}
}
