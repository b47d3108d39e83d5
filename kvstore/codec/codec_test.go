package codec

import (
	"strings"
	"testing"

	"github.com/goliatone/kvengine/kverrors"
)

func TestPlainRoundTrip(t *testing.T) {
	c, err := New(ModeNone, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stored, err := c.Encode(map[string]any{"name": "Nana", "age": float64(20)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(stored, "Nana") {
		t.Fatalf("expected plain JSON to be human readable, got %q", stored)
	}

	var got map[string]any
	if err := c.Decode(stored, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got["name"] != "Nana" || got["age"] != float64(20) {
		t.Fatalf("unexpected round trip result: %#v", got)
	}
}

func TestPlainRoundTripUnicode(t *testing.T) {
	c, err := New(ModeNone, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := c.Encode("こんにちは")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(stored, `\u`) {
		t.Fatalf("expected no unicode escaping, got %q", stored)
	}

	var got string
	if err := c.Decode(stored, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "こんにちは" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func key32(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func TestAESGCMRoundTrip(t *testing.T) {
	c, err := New(ModeAESGCM, key32(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stored, err := c.Encode([]any{"a", "b", float64(3)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got []any
	if err := c.Decode(stored, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 3 || got[0] != "a" {
		t.Fatalf("unexpected value: %#v", got)
	}
}

func TestAESGCMWrongKeyFailsDecryption(t *testing.T) {
	writer, err := New(ModeAESGCM, key32(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := writer.Encode("secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	reader, err := New(ModeAESGCM, key32(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got string
	err = reader.Decode(stored, &got)
	if err == nil {
		t.Fatalf("expected decryption failure with mismatched key")
	}
	if !kverrors.IsDecryption(err) {
		t.Fatalf("expected decryption category error, got %v", err)
	}
}

func TestChaCha20RoundTrip(t *testing.T) {
	c, err := New(ModeChaCha20, key32(7))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := c.Encode(map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]any
	if err := c.Decode(stored, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got["k"] != "v" {
		t.Fatalf("unexpected value: %#v", got)
	}
}

func TestFernetRoundTrip(t *testing.T) {
	c, err := New(ModeFernet, key32(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := c.Encode("fernet-value")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got string
	if err := c.Decode(stored, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "fernet-value" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestDecodeTamperedEnvelopeFails(t *testing.T) {
	c, err := New(ModeAESGCM, key32(9))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := c.Encode("tamper-me")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tampered := stored[:len(stored)-2] + "00"
	var got string
	err = c.Decode(tampered, &got)
	if err == nil {
		t.Fatalf("expected tampering to be detected")
	}
}

func TestInvalidKeySize(t *testing.T) {
	if _, err := New(ModeAESGCM, []byte("too-short")); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestDecodeAny(t *testing.T) {
	c, err := New(ModeNone, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stored, err := c.Encode(map[string]any{"nested": []any{float64(1), float64(2)}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.DecodeAny(stored)
	if err != nil {
		t.Fatalf("DecodeAny: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v)
	}
	if _, ok := m["nested"]; !ok {
		t.Fatalf("missing nested key")
	}
}
