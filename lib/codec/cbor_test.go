// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// sampleEnvelope is a representative sync protocol message using cbor
// struct tags (the convention for wire-only types).
type sampleEnvelope struct {
	Type      string `cbor:"type"`
	RequestID string `cbor:"request_id,omitempty"`
	Path      string `cbor:"path,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEnvelope{
		Type:      "query",
		RequestID: "1fb0b5e0-6c15-4a2f-9d44-64a6e9c2d1aa",
		Path:      "messages:list",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleEnvelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := sampleEnvelope{
		Type:      "result",
		RequestID: "req-7",
		Path:      "tasks:complete",
	}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}

	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestAnyTargetDecodesStringKeyedMaps(t *testing.T) {
	// Document trees carried in any-typed envelope fields must decode
	// as map[string]any, the interchange form the value package
	// consumes.
	data, err := Marshal(map[string]any{"name": "ada", "age": int64(36)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	tree, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if tree["name"] != "ada" {
		t.Errorf("name = %v, want %q", tree["name"], "ada")
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	messages := []sampleEnvelope{
		{Type: "query", RequestID: "a", Path: "messages:list"},
		{Type: "mutation", RequestID: "b", Path: "messages:send"},
		{Type: "unsubscribe"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range messages {
		var got sampleEnvelope
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestOmitemptyRespected(t *testing.T) {
	// A zero-value omitempty field should not appear in output.
	withPath := sampleEnvelope{Type: "query", RequestID: "x", Path: "tasks:list"}
	withoutPath := sampleEnvelope{Type: "query", RequestID: "x"}

	dataWith, err := Marshal(withPath)
	if err != nil {
		t.Fatal(err)
	}
	dataWithout, err := Marshal(withoutPath)
	if err != nil {
		t.Fatal(err)
	}

	if len(dataWithout) >= len(dataWith) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(dataWithout), len(dataWith))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var message sampleEnvelope
	err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &message)
	if err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestByteStringRoundtrip(t *testing.T) {
	// Verify that []byte fields encode as CBOR byte strings (major
	// type 2), not text strings. This matters for carrying binary
	// document fields.
	type envelope struct {
		Payload []byte `cbor:"payload"`
	}

	original := envelope{Payload: []byte{0x00, 0x01, 0xFE, 0xFF}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("byte string roundtrip: got %x, want %x", decoded.Payload, original.Payload)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "hello"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if !strings.Contains(notation, `"type"`) {
		t.Errorf("notation %q does not contain \"type\"", notation)
	}
	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("notation %q does not contain \"hello\"", notation)
	}
}

func BenchmarkMarshal(b *testing.B) {
	message := sampleEnvelope{
		Type:      "query",
		RequestID: "1fb0b5e0-6c15-4a2f-9d44-64a6e9c2d1aa",
		Path:      "messages:list",
	}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(message)
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	message := sampleEnvelope{
		Type:      "query",
		RequestID: "1fb0b5e0-6c15-4a2f-9d44-64a6e9c2d1aa",
		Path:      "messages:list",
	}
	data, err := Marshal(message)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		var decoded sampleEnvelope
		Unmarshal(data, &decoded)
	}
}
