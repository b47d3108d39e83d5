package cache

import (
	"strings"
	"testing"
)

func TestSerializeKeyNoArgs(t *testing.T) {
	s := NewDefaultKeySerializer()
	if got := s.SerializeKey("List"); got != "List" {
		t.Fatalf("got %q, want %q", got, "List")
	}
}

func TestSerializeKeyBasicTypes(t *testing.T) {
	s := NewDefaultKeySerializer()

	tests := []struct {
		name string
		args []any
		want string
	}{
		{"int", []any{42}, "GetByID::42"},
		{"mixed", []any{1, "hi", true, 2.5}, "GetByID::1::hi::true::2.5"},
		{"nil", []any{nil}, "GetByID::nil"},
		{"nil pointer", []any{(*int)(nil)}, "GetByID::nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SerializeKey("GetByID", tt.args...); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeKeyDeterministicMaps(t *testing.T) {
	s := NewDefaultKeySerializer()
	m := map[string]int{"b": 2, "a": 1, "c": 3}

	first := s.SerializeKey("Query", m)
	for i := 0; i < 20; i++ {
		if got := s.SerializeKey("Query", m); got != first {
			t.Fatalf("iteration %d: got %q, want %q", i, got, first)
		}
	}
	if !strings.Contains(first, "a=1,b=2,c=3") {
		t.Fatalf("map pairs not sorted: %q", first)
	}
}

func TestSerializeKeySlicesAndStructs(t *testing.T) {
	s := NewDefaultKeySerializer()

	type filter struct {
		Column string
		Value  any
		secret string
	}

	key := s.SerializeKey("List", []string{"a", "b"}, filter{Column: "name", Value: 7, secret: "s"})
	if !strings.Contains(key, "[a,b]") {
		t.Fatalf("slice encoding missing from %q", key)
	}
	if !strings.Contains(key, "filter{Column:name,Value:7}") {
		t.Fatalf("struct encoding missing from %q", key)
	}
	if strings.Contains(key, "secret") {
		t.Fatalf("unexported field leaked into %q", key)
	}
}

func TestSerializeKeyFunctionsStableWithinProcess(t *testing.T) {
	s := NewDefaultKeySerializer()
	fn := func() {}

	a := s.SerializeKey("Get", fn)
	b := s.SerializeKey("Get", fn)
	if a != b {
		t.Fatalf("same func produced %q and %q", a, b)
	}
}

func TestSerializeKeyLongKeysDigest(t *testing.T) {
	s := NewDefaultKeySerializer()
	huge := strings.Repeat("x", 4*maxKeyLen)

	key := s.SerializeKey("List", huge)
	if len(key) > maxKeyLen {
		t.Fatalf("digested key still %d bytes", len(key))
	}
	// The method prefix must survive so prefix invalidation still matches.
	if !strings.HasPrefix(key, "List"+KeySeparator) {
		t.Fatalf("digest lost method prefix: %q", key)
	}
	if key == s.SerializeKey("List", huge+"y") {
		t.Fatal("different args collapsed to the same digest")
	}
	if key != s.SerializeKey("List", huge) {
		t.Fatal("digest not deterministic")
	}
}
