package auxrepo

import "testing"

func TestToSnake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Account", "account"},
		{"AccountEntry", "account_entry"},
		{"HTTPServer", "http_server"},
		{"UserV2", "user_v2"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := toSnake(tt.in); got != tt.want {
			t.Errorf("toSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNamespaceFor(t *testing.T) {
	if got := namespaceFor[Account](); got != "account" {
		t.Fatalf("namespaceFor[Account] = %q, want account", got)
	}
	if got := namespaceFor[*Account](); got != "account" {
		t.Fatalf("namespaceFor[*Account] = %q, want account", got)
	}
}

func TestNamespacesDoNotCollide(t *testing.T) {
	type Ledger struct{ ID string }
	a := namespaceFor[Account]()
	b := namespaceFor[Ledger]()
	if a == b {
		t.Fatalf("namespaces collide: %q", a)
	}
}
