package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nostrid/nip05-registry/internal/common/constants"
)

var (
	ErrMissingRequiredEnv   = errors.New("missing required environment variable")
	ErrInvalidSessionSecret = errors.New("SESSION_SECRET must be at least 32 bytes")
)

type RegistryConfig struct {
	HTTPPort       string
	DatabaseURL    string
	SessionSecret  string
	RequestTimeout time.Duration
	LnurlTimeout   time.Duration

	// hex or nsec secret key for the server-side zap signer; empty means
	// the signer capability is unavailable
	SignerSecretKey string

	DefaultRelays []string
}

func LoadRegistryConfig() (RegistryConfig, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return RegistryConfig{}, err
	}

	sessionSecret, err := mustEnv("SESSION_SECRET")
	if err != nil {
		return RegistryConfig{}, err
	}

	if len(sessionSecret) < constants.SessionSecretMinLength {
		return RegistryConfig{}, fmt.Errorf("%w: got %d bytes", ErrInvalidSessionSecret, len(sessionSecret))
	}

	return RegistryConfig{
		HTTPPort:        getEnv("REGISTRY_HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:     databaseURL,
		SessionSecret:   sessionSecret,
		RequestTimeout:  getDurationEnv("REGISTRY_REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		LnurlTimeout:    getDurationEnv("REGISTRY_LNURL_TIMEOUT", constants.DefaultLnurlTimeout),
		SignerSecretKey: getEnv("NOSTR_SECRET_KEY", ""),
		DefaultRelays:   getListEnv("REGISTRY_DEFAULT_RELAYS", defaultRelays),
	}, nil
}

var defaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.nostr.band",
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getListEnv(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
