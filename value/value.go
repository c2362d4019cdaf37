// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package value

// Kind identifies a value variant. The numeric values double as the
// variant tags of the boundary codec — changing them breaks wire
// compatibility with every generated foreign binding.
type Kind int32

const (
	KindID Kind = iota + 1
	KindNull
	KindInt64
	KindFloat64
	KindBoolean
	KindString
	KindBytes
	KindArray
	KindSet
	KindMap
	KindObject
)

// String returns the variant name as it appears in foreign bindings.
func (k Kind) String() string {
	switch k {
	case KindID:
		return "Id"
	case KindNull:
		return "Null"
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindArray:
		return "Array"
	case KindSet:
		return "Set"
	case KindMap:
		return "Map"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// Value is the closed sum of every variant a deployment can produce
// or accept. The only implementations are the eleven types in this
// package; the unexported method keeps the set closed.
type Value interface {
	Kind() Kind
	isValue()
}

// ID is a document identifier assigned by the deployment.
type ID string

// Null is the absent value.
type Null struct{}

// Int64 is a 64-bit signed integer.
type Int64 int64

// Float64 is a 64-bit IEEE-754 float. Ordering treats the bit pattern
// totally; see [Compare].
type Float64 float64

// Boolean is true or false.
type Boolean bool

// String is a UTF-8 string.
type String string

// Bytes is an opaque byte sequence.
type Bytes []byte

// Array is an ordered sequence of values.
type Array []Value

func (ID) Kind() Kind      { return KindID }
func (Null) Kind() Kind    { return KindNull }
func (Int64) Kind() Kind   { return KindInt64 }
func (Float64) Kind() Kind { return KindFloat64 }
func (Boolean) Kind() Kind { return KindBoolean }
func (String) Kind() Kind  { return KindString }
func (Bytes) Kind() Kind   { return KindBytes }
func (Array) Kind() Kind   { return KindArray }
func (Set) Kind() Kind     { return KindSet }
func (Map) Kind() Kind     { return KindMap }
func (Object) Kind() Kind  { return KindObject }

func (ID) isValue()      {}
func (Null) isValue()    {}
func (Int64) isValue()   {}
func (Float64) isValue() {}
func (Boolean) isValue() {}
func (String) isValue()  {}
func (Bytes) isValue()   {}
func (Array) isValue()   {}
func (Set) isValue()     {}
func (Map) isValue()     {}
func (Object) isValue()  {}
