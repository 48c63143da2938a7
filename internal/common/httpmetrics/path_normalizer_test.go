package httpmetrics

import (
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		path string
		want string
	}{
		{"/api/nip05", "/api/nip05"},
		{"/api/profile/" + strings.Repeat("ab", 32), "/api/profile/{param}"},
		{"/api/members/42", "/api/members/{param}"},
		{"/.well-known/nostr.json", "/.well-known/nostr.json"},
		{"", "/"},
	}

	for _, tc := range testCases {
		if got := NormalizePath(tc.path); got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
