package signer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
)

type Capability int

const (
	Unavailable Capability = iota
	Available
)

// Signer produces event signatures. Implementations may proxy a remote
// signing device, so both operations take a context.
type Signer interface {
	Capability() Capability
	PublicKey(ctx context.Context) (string, error)
	SignEvent(ctx context.Context, event *nostr.Event) error
}

// LocalSigner signs with an in-process secret key, given as 64 hex chars
// or in nsec bech32 form.
type LocalSigner struct {
	secretKey string
	publicKey string
}

func NewLocalSigner(secretKey string) (*LocalSigner, error) {
	if strings.HasPrefix(secretKey, "nsec1") {
		prefix, decoded, err := nip19.Decode(secretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode nsec key: %w", err)
		}
		if prefix != "nsec" {
			return nil, fmt.Errorf("unexpected bech32 prefix %q", prefix)
		}
		secretKey = decoded.(string)
	}

	publicKey, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}

	return &LocalSigner{
		secretKey: secretKey,
		publicKey: publicKey,
	}, nil
}

func (s *LocalSigner) Capability() Capability {
	return Available
}

func (s *LocalSigner) PublicKey(ctx context.Context) (string, error) {
	return s.publicKey, nil
}

func (s *LocalSigner) SignEvent(ctx context.Context, event *nostr.Event) error {
	return event.Sign(s.secretKey)
}

// NoopSigner stands in when no secret key is configured. Every signing
// operation reports the signer as unavailable.
type NoopSigner struct{}

func (NoopSigner) Capability() Capability {
	return Unavailable
}

func (NoopSigner) PublicKey(ctx context.Context) (string, error) {
	return "", commonerrors.ErrNoSignerAvailable
}

func (NoopSigner) SignEvent(ctx context.Context, event *nostr.Event) error {
	return commonerrors.ErrNoSignerAvailable
}

// FromConfig picks the signer for the configured key, falling back to the
// no-op signer when the key is empty.
func FromConfig(secretKey string) (Signer, error) {
	if secretKey == "" {
		return NoopSigner{}, nil
	}
	return NewLocalSigner(secretKey)
}
