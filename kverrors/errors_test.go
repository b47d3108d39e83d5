package kverrors

import (
	"errors"
	"testing"
)

func TestKeyMissing(t *testing.T) {
	err := KeyMissing("user:1")
	if !IsKeyMissing(err) {
		t.Fatalf("expected key-missing category, got %v", err)
	}
	if IsClosed(err) {
		t.Fatalf("key-missing error misclassified as closed")
	}
}

func TestClosedMessagesIncludeTable(t *testing.T) {
	err := Closed("slave")
	if !IsClosed(err) {
		t.Fatalf("expected closed category, got %v", err)
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestClosedParentOnly(t *testing.T) {
	err := Closed("")
	if !IsClosed(err) {
		t.Fatalf("expected closed category, got %v", err)
	}
}

func TestEngineWrapsCauseUnchanged(t *testing.T) {
	cause := errors.New("no such function: HEX")
	wrapped := Engine(cause)
	if !IsEngine(wrapped) {
		t.Fatalf("expected engine category, got %v", wrapped)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to the original cause")
	}
}

func TestEngineNilPassthrough(t *testing.T) {
	if Engine(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestWarnfUsesProvidedWarner(t *testing.T) {
	var got string
	w := WarnerFunc(func(message string) { got = message })
	Warnf(w, "dangerous function %s", "DANGEROUS_FUNC")
	if got != "dangerous function DANGEROUS_FUNC" {
		t.Fatalf("unexpected warning: %q", got)
	}
}

func TestWarnfFallsBackToDefault(t *testing.T) {
	var got string
	SetDefaultWarner(WarnerFunc(func(message string) { got = message }))
	defer SetDefaultWarner(nil)

	Warnf(nil, "fallback %d", 1)
	if got != "fallback 1" {
		t.Fatalf("unexpected warning via default: %q", got)
	}
}
