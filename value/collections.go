// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"sort"
)

// Set is a set of values, deduplicated and held in canonical order.
// A Set is canonical by construction: [NewSet] sorts and deduplicates,
// and Members always iterates in [Compare] order, so two Sets with the
// same members are indistinguishable regardless of how they were built.
type Set struct {
	members []Value
}

// NewSet builds a Set from the given values. Duplicates (values that
// compare equal) collapse to a single member.
func NewSet(members ...Value) Set {
	sorted := make([]Value, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Compare(sorted[i], sorted[j]) < 0
	})

	deduped := sorted[:0]
	for _, member := range sorted {
		if len(deduped) > 0 && Compare(deduped[len(deduped)-1], member) == 0 {
			continue
		}
		deduped = append(deduped, member)
	}
	return Set{members: deduped}
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.members) }

// Members returns the members in canonical order. The returned slice
// is a copy; mutating it does not affect the Set.
func (s Set) Members() []Value {
	out := make([]Value, len(s.members))
	copy(out, s.members)
	return out
}

// Contains reports whether the set holds a member equal to v.
func (s Set) Contains(v Value) bool {
	i := sort.Search(len(s.members), func(i int) bool {
		return Compare(s.members[i], v) >= 0
	})
	return i < len(s.members) && Compare(s.members[i], v) == 0
}

// MapEntry is one key-value pair of a [Map].
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is a mapping from value keys to values, held in canonical key
// order. Like [Set], a Map is canonical by construction.
type Map struct {
	entries []MapEntry
}

// NewMap builds a Map from the given entries. When two entries carry
// keys that compare equal, the later entry wins — the same semantics
// as inserting into an ordered map one entry at a time.
func NewMap(entries ...MapEntry) Map {
	sorted := make([]MapEntry, len(entries))
	copy(sorted, entries)
	// Stable sort keeps insertion order within an equal-key run, so
	// the last element of each run is the last inserted.
	sort.SliceStable(sorted, func(i, j int) bool {
		return Compare(sorted[i].Key, sorted[j].Key) < 0
	})

	deduped := sorted[:0]
	for _, entry := range sorted {
		if len(deduped) > 0 && Compare(deduped[len(deduped)-1].Key, entry.Key) == 0 {
			deduped[len(deduped)-1] = entry
			continue
		}
		deduped = append(deduped, entry)
	}
	return Map{entries: deduped}
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.entries) }

// Entries returns the entries in canonical key order. The returned
// slice is a copy.
func (m Map) Entries() []MapEntry {
	out := make([]MapEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Get returns the value stored under a key equal to key.
func (m Map) Get(key Value) (Value, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return Compare(m.entries[i].Key, key) >= 0
	})
	if i < len(m.entries) && Compare(m.entries[i].Key, key) == 0 {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Field is one named field of an [Object].
type Field struct {
	Name  string
	Value Value
}

// Object is a mapping from string field names to values, held in
// canonical (lexicographic byte) name order with unique names. This is
// the shape of deployment documents and of function arguments.
type Object struct {
	fields []Field
}

// NewObject builds an Object from a name-to-value map.
func NewObject(fields map[string]Value) Object {
	ordered := make([]Field, 0, len(fields))
	for name, v := range fields {
		ordered = append(ordered, Field{Name: name, Value: v})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})
	return Object{fields: ordered}
}

// ObjectOf builds an Object from explicit fields. When two fields
// share a name, the later one wins.
func ObjectOf(fields ...Field) Object {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	deduped := sorted[:0]
	for _, field := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Name == field.Name {
			deduped[len(deduped)-1] = field
			continue
		}
		deduped = append(deduped, field)
	}
	return Object{fields: deduped}
}

// Len returns the number of fields.
func (o Object) Len() int { return len(o.fields) }

// Fields returns the fields in canonical name order. The returned
// slice is a copy.
func (o Object) Fields() []Field {
	out := make([]Field, len(o.fields))
	copy(out, o.fields)
	return out
}

// Get returns the value of the named field.
func (o Object) Get(name string) (Value, bool) {
	i := sort.Search(len(o.fields), func(i int) bool {
		return o.fields[i].Name >= name
	})
	if i < len(o.fields) && o.fields[i].Name == name {
		return o.fields[i].Value, true
	}
	return nil, false
}
