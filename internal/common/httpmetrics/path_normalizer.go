package httpmetrics

import (
	"regexp"
	"strings"
)

var hexKeyRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NormalizePath collapses high-cardinality path segments (public keys,
// numeric ids) so metric labels stay bounded.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if hexKeyRegex.MatchString(part) || isNumeric(part) {
			parts[i] = "{param}"
		}
	}

	result := strings.Join(parts, "/")
	if result == "" {
		return "/"
	}

	return result
}

func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
