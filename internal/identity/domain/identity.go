package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nostrid/nip05-registry/internal/common/constants"
)

// Identity is one row of the registered_users table: a NIP-05 username
// mapped to a Nostr public key, plus optional profile metadata.
type Identity struct {
	Username          string
	PublicKey         string
	Name              string
	LightningAddress  string
	Relays            []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	MetadataUpdatedAt time.Time
}

var publicKeyRegex = regexp.MustCompile(fmt.Sprintf(`^[0-9a-f]{%d}$`, constants.PublicKeyHexLength))

// ValidPublicKey reports whether s is a canonical lowercase hex Nostr
// public key.
func ValidPublicKey(s string) bool {
	return publicKeyRegex.MatchString(s)
}

// ValidRelayURL accepts ws:// and wss:// URIs only.
func ValidRelayURL(s string) bool {
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://")
}

// FilterRelays drops empty and blank entries, preserving order.
func FilterRelays(relays []string) []string {
	if len(relays) == 0 {
		return nil
	}
	out := make([]string, 0, len(relays))
	for _, r := range relays {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DedupeRelays drops empty and repeated entries, preserving first-seen order.
func DedupeRelays(relays []string) []string {
	if len(relays) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(relays))
	out := make([]string, 0, len(relays))
	for _, r := range relays {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
