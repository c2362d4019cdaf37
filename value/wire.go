// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// The deployment interchange tree is the JSON/CBOR-compatible data
// model the sync protocol carries: nil, bool, float64, string, []any,
// and map[string]any. Variants the plain tree cannot express are
// wrapped in single-key marker objects:
//
//	Id      {"$id": "..."}
//	Int64   {"$integer": base64 of 8 little-endian bytes}
//	Float64 {"$float":   base64 of 8 little-endian bytes}  (non-finite only)
//	Bytes   {"$bytes":   base64}
//	Set     {"$set": [member, ...]}            (canonical order)
//	Map     {"$map": [[key, value], ...]}      (canonical key order)
//
// Finite floats travel as plain numbers. Plain objects are deployment
// documents; their field names must not start with "$", which is what
// keeps the marker space unambiguous.

const (
	markerID      = "$id"
	markerInteger = "$integer"
	markerFloat   = "$float"
	markerBytes   = "$bytes"
	markerSet     = "$set"
	markerMap     = "$map"
)

// ToWire converts a value to its interchange tree. The conversion is
// total except for Object field names starting with "$", which are
// rejected because they would collide with the marker space.
func ToWire(v Value) (any, error) {
	switch val := v.(type) {
	case ID:
		return map[string]any{markerID: string(val)}, nil
	case Null:
		return nil, nil
	case Int64:
		var raw [8]byte
		binary.LittleEndian.PutUint64(raw[:], uint64(val))
		return map[string]any{markerInteger: base64.StdEncoding.EncodeToString(raw[:])}, nil
	case Float64:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			var raw [8]byte
			binary.LittleEndian.PutUint64(raw[:], math.Float64bits(f))
			return map[string]any{markerFloat: base64.StdEncoding.EncodeToString(raw[:])}, nil
		}
		return f, nil
	case Boolean:
		return bool(val), nil
	case String:
		return string(val), nil
	case Bytes:
		return map[string]any{markerBytes: base64.StdEncoding.EncodeToString(val)}, nil
	case Array:
		out := make([]any, len(val))
		for i, member := range val {
			wire, err := ToWire(member)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = wire
		}
		return out, nil
	case Set:
		members := make([]any, 0, val.Len())
		for i, member := range val.members {
			wire, err := ToWire(member)
			if err != nil {
				return nil, fmt.Errorf("set[%d]: %w", i, err)
			}
			members = append(members, wire)
		}
		return map[string]any{markerSet: members}, nil
	case Map:
		pairs := make([]any, 0, val.Len())
		for i, entry := range val.entries {
			key, err := ToWire(entry.Key)
			if err != nil {
				return nil, fmt.Errorf("map[%d] key: %w", i, err)
			}
			item, err := ToWire(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("map[%d] value: %w", i, err)
			}
			pairs = append(pairs, []any{key, item})
		}
		return map[string]any{markerMap: pairs}, nil
	case Object:
		out := make(map[string]any, val.Len())
		for _, field := range val.fields {
			if strings.HasPrefix(field.Name, "$") {
				return nil, fmt.Errorf("value: object field %q collides with the $-marker space", field.Name)
			}
			wire, err := ToWire(field.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
			out[field.Name] = wire
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value: unknown variant %T", v)
	}
}

// FromWire converts an interchange tree back to a value. Set members
// and Map entries are re-canonicalized on the way in, so a peer that
// serialized them in a different order still yields an equal value.
//
// Integers may arrive either as $integer markers or (from liberal
// peers) as bare int64/uint64 nodes; both decode to [Int64].
func FromWire(wire any) (Value, error) {
	switch node := wire.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Boolean(node), nil
	case float64:
		return Float64(node), nil
	case int64:
		return Int64(node), nil
	case uint64:
		if node > math.MaxInt64 {
			return nil, fmt.Errorf("value: integer %d overflows int64", node)
		}
		return Int64(node), nil
	case string:
		return String(node), nil
	case []any:
		out := make(Array, len(node))
		for i, member := range node {
			v, err := FromWire(member)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		return objectFromWire(node)
	default:
		return nil, fmt.Errorf("value: unsupported interchange node %T", wire)
	}
}

// objectFromWire decodes a map node: either a single-key $-marker or a
// plain deployment document.
func objectFromWire(node map[string]any) (Value, error) {
	if len(node) == 1 {
		for marker, payload := range node {
			switch marker {
			case markerID:
				s, ok := payload.(string)
				if !ok {
					return nil, fmt.Errorf("value: $id payload is %T, want string", payload)
				}
				return ID(s), nil
			case markerInteger:
				raw, err := fixed8(payload)
				if err != nil {
					return nil, fmt.Errorf("value: $integer: %w", err)
				}
				return Int64(binary.LittleEndian.Uint64(raw)), nil
			case markerFloat:
				raw, err := fixed8(payload)
				if err != nil {
					return nil, fmt.Errorf("value: $float: %w", err)
				}
				return Float64(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
			case markerBytes:
				s, ok := payload.(string)
				if !ok {
					return nil, fmt.Errorf("value: $bytes payload is %T, want string", payload)
				}
				raw, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return nil, fmt.Errorf("value: $bytes: %w", err)
				}
				return Bytes(raw), nil
			case markerSet:
				members, ok := payload.([]any)
				if !ok {
					return nil, fmt.Errorf("value: $set payload is %T, want array", payload)
				}
				decoded := make([]Value, len(members))
				for i, member := range members {
					v, err := FromWire(member)
					if err != nil {
						return nil, fmt.Errorf("set[%d]: %w", i, err)
					}
					decoded[i] = v
				}
				return NewSet(decoded...), nil
			case markerMap:
				pairs, ok := payload.([]any)
				if !ok {
					return nil, fmt.Errorf("value: $map payload is %T, want array", payload)
				}
				entries := make([]MapEntry, len(pairs))
				for i, rawPair := range pairs {
					pair, ok := rawPair.([]any)
					if !ok || len(pair) != 2 {
						return nil, fmt.Errorf("value: $map[%d] is not a [key, value] pair", i)
					}
					key, err := FromWire(pair[0])
					if err != nil {
						return nil, fmt.Errorf("map[%d] key: %w", i, err)
					}
					item, err := FromWire(pair[1])
					if err != nil {
						return nil, fmt.Errorf("map[%d] value: %w", i, err)
					}
					entries[i] = MapEntry{Key: key, Value: item}
				}
				return NewMap(entries...), nil
			}
		}
	}

	fields := make(map[string]Value, len(node))
	for name, payload := range node {
		if strings.HasPrefix(name, "$") {
			return nil, fmt.Errorf("value: unknown marker %q", name)
		}
		v, err := FromWire(payload)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = v
	}
	return NewObject(fields), nil
}

// fixed8 decodes a base64 marker payload that must be exactly 8 bytes.
func fixed8(payload any) ([]byte, error) {
	s, ok := payload.(string)
	if !ok {
		return nil, fmt.Errorf("payload is %T, want string", payload)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != 8 {
		return nil, fmt.Errorf("payload is %d bytes, want 8", len(raw))
	}
	return raw, nil
}
