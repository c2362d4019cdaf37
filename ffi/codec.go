// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package ffi

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lodestone-data/lodestone/value"
)

// EncodeValue encodes a single value into a fresh buffer.
func EncodeValue(v value.Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// AppendValue appends the encoding of v to dst and returns the
// extended buffer. On error dst may have grown; callers that need the
// original buffer back should treat an error as discarding dst.
func AppendValue(dst []byte, v value.Value) ([]byte, error) {
	dst = appendI32(dst, int32(v.Kind()))

	switch val := v.(type) {
	case value.ID:
		return appendSized(dst, []byte(val))
	case value.Null:
		return dst, nil
	case value.Int64:
		return binary.BigEndian.AppendUint64(dst, uint64(val)), nil
	case value.Float64:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(val))), nil
	case value.Boolean:
		if val {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case value.String:
		return appendSized(dst, []byte(val))
	case value.Bytes:
		return appendSized(dst, val)
	case value.Array:
		dst, err := appendCount(dst, len(val))
		if err != nil {
			return nil, err
		}
		for _, member := range val {
			if dst, err = AppendValue(dst, member); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case value.Set:
		dst, err := appendCount(dst, val.Len())
		if err != nil {
			return nil, err
		}
		for _, member := range val.Members() {
			if dst, err = AppendValue(dst, member); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case value.Map:
		dst, err := appendCount(dst, val.Len())
		if err != nil {
			return nil, err
		}
		for _, entry := range val.Entries() {
			if dst, err = AppendValue(dst, entry.Key); err != nil {
				return nil, err
			}
			if dst, err = AppendValue(dst, entry.Value); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case value.Object:
		dst, err := appendCount(dst, val.Len())
		if err != nil {
			return nil, err
		}
		for _, field := range val.Fields() {
			if dst, err = appendSized(dst, []byte(field.Name)); err != nil {
				return nil, err
			}
			if dst, err = AppendValue(dst, field.Value); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidTag, v)
	}
}

// DecodeValue decodes the single value a boundary buffer carries. The
// buffer must be consumed exactly: leftover bytes fail with
// [ErrTrailingBytes]. Decoding is all-or-nothing — on error no value
// is returned.
func DecodeValue(data []byte) (value.Value, error) {
	decoder := NewDecoder(data)
	v, err := decoder.Value()
	if err != nil {
		return nil, err
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d left", ErrTrailingBytes, decoder.Remaining())
	}
	return v, nil
}

// Decoder consumes values from a buffer one at a time. After any
// error the decoder's position is unspecified and it must be
// discarded.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a decoder reading from data. The decoder does
// not copy data; the caller must not mutate it while decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Remaining returns the number of unconsumed bytes.
func (d *Decoder) Remaining() int { return len(d.buf) }

// Value decodes and consumes the next value.
func (d *Decoder) Value() (value.Value, error) {
	tag, err := d.i32()
	if err != nil {
		return nil, err
	}

	switch value.Kind(tag) {
	case value.KindID:
		raw, err := d.sized()
		if err != nil {
			return nil, err
		}
		return value.ID(raw), nil
	case value.KindNull:
		return value.Null{}, nil
	case value.KindInt64:
		raw, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.Int64(binary.BigEndian.Uint64(raw)), nil
	case value.KindFloat64:
		raw, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return value.Float64(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case value.KindBoolean:
		raw, err := d.take(1)
		if err != nil {
			return nil, err
		}
		return value.Boolean(raw[0] != 0), nil
	case value.KindString:
		raw, err := d.sized()
		if err != nil {
			return nil, err
		}
		return value.String(raw), nil
	case value.KindBytes:
		raw, err := d.sized()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return value.Bytes(out), nil
	case value.KindArray:
		count, err := d.count()
		if err != nil {
			return nil, err
		}
		members := make(value.Array, 0, min(count, 1024))
		for i := 0; i < count; i++ {
			member, err := d.Value()
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		return members, nil
	case value.KindSet:
		count, err := d.count()
		if err != nil {
			return nil, err
		}
		members := make([]value.Value, 0, min(count, 1024))
		for i := 0; i < count; i++ {
			member, err := d.Value()
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		// Canonicalization on read: the peer's write order is not
		// trusted.
		return value.NewSet(members...), nil
	case value.KindMap:
		count, err := d.count()
		if err != nil {
			return nil, err
		}
		entries := make([]value.MapEntry, 0, min(count, 1024))
		for i := 0; i < count; i++ {
			key, err := d.Value()
			if err != nil {
				return nil, err
			}
			item, err := d.Value()
			if err != nil {
				return nil, err
			}
			entries = append(entries, value.MapEntry{Key: key, Value: item})
		}
		return value.NewMap(entries...), nil
	case value.KindObject:
		count, err := d.count()
		if err != nil {
			return nil, err
		}
		fields := make([]value.Field, 0, min(count, 1024))
		for i := 0; i < count; i++ {
			name, err := d.sized()
			if err != nil {
				return nil, err
			}
			item, err := d.Value()
			if err != nil {
				return nil, err
			}
			fields = append(fields, value.Field{Name: string(name), Value: item})
		}
		return value.ObjectOf(fields...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
}

// take consumes exactly n bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if len(d.buf) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, n, len(d.buf))
	}
	out := d.buf[:n]
	d.buf = d.buf[n:]
	return out, nil
}

// i32 consumes a big-endian signed 32-bit integer.
func (d *Decoder) i32() (int32, error) {
	raw, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

// count consumes a length prefix and validates its sign.
func (d *Decoder) count() (int, error) {
	n, err := d.i32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	return int(n), nil
}

// sized consumes a length-prefixed byte run.
func (d *Decoder) sized() ([]byte, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

func appendI32(dst []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

// appendCount writes a length prefix, enforcing the signed 32-bit
// wire limit.
func appendCount(dst []byte, n int) ([]byte, error) {
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d elements", ErrCodecOverflow, n)
	}
	return appendI32(dst, int32(n)), nil
}

func appendSized(dst, raw []byte) ([]byte, error) {
	dst, err := appendCount(dst, len(raw))
	if err != nil {
		return nil, err
	}
	return append(dst, raw...), nil
}
