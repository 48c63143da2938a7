package domain

import (
	"strings"
	"testing"
)

func TestValidPublicKey(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		valid bool
	}{
		{"valid lowercase hex", strings.Repeat("a1", 32), true},
		{"63 chars", strings.Repeat("a", 63), false},
		{"65 chars", strings.Repeat("a", 65), false},
		{"uppercase hex", strings.Repeat("A", 64), false},
		{"non-hex chars", strings.Repeat("g", 64), false},
		{"npub form", "npub1" + strings.Repeat("a", 59), false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidPublicKey(tc.key); got != tc.valid {
				t.Errorf("ValidPublicKey(%q) = %v, want %v", tc.key, got, tc.valid)
			}
		})
	}
}

func TestValidRelayURL(t *testing.T) {
	testCases := []struct {
		url   string
		valid bool
	}{
		{"wss://relay.damus.io", true},
		{"ws://localhost:7777", true},
		{"https://relay.damus.io", false},
		{"relay.damus.io", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := ValidRelayURL(tc.url); got != tc.valid {
			t.Errorf("ValidRelayURL(%q) = %v, want %v", tc.url, got, tc.valid)
		}
	}
}

func TestFilterRelays(t *testing.T) {
	got := FilterRelays([]string{"wss://a", "", "  ", "wss://b"})
	if len(got) != 2 || got[0] != "wss://a" || got[1] != "wss://b" {
		t.Errorf("unexpected filtered relays: %v", got)
	}

	if FilterRelays(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestDedupeRelays(t *testing.T) {
	got := DedupeRelays([]string{"wss://a", "wss://b", "wss://a"})
	if len(got) != 2 {
		t.Errorf("expected 2 relays, got %v", got)
	}
}
