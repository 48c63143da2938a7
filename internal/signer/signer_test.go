package signer

import (
	"context"
	"errors"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
)

func TestLocalSigner_HexKey(t *testing.T) {
	secretKey := nostr.GeneratePrivateKey()

	sgn, err := NewLocalSigner(secretKey)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if sgn.Capability() != Available {
		t.Error("expected signer to be available")
	}

	publicKey, err := sgn.PublicKey(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want, _ := nostr.GetPublicKey(secretKey)
	if publicKey != want {
		t.Errorf("expected public key %q, got %q", want, publicKey)
	}
}

func TestLocalSigner_NsecKey(t *testing.T) {
	secretKey := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(secretKey)
	if err != nil {
		t.Fatalf("failed to encode nsec: %v", err)
	}

	sgn, err := NewLocalSigner(nsec)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want, _ := nostr.GetPublicKey(secretKey)
	publicKey, _ := sgn.PublicKey(context.Background())
	if publicKey != want {
		t.Errorf("expected public key %q, got %q", want, publicKey)
	}
}

func TestLocalSigner_SignEvent(t *testing.T) {
	sgn, err := NewLocalSigner(nostr.GeneratePrivateKey())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	publicKey, _ := sgn.PublicKey(context.Background())
	event := nostr.Event{
		PubKey:    publicKey,
		CreatedAt: nostr.Timestamp(1700000000),
		Kind:      9734,
		Content:   "zap",
	}

	if err := sgn.SignEvent(context.Background(), &event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ok, err := event.CheckSignature(); err != nil || !ok {
		t.Errorf("expected valid signature, ok=%v err=%v", ok, err)
	}
}

func TestLocalSigner_InvalidKey(t *testing.T) {
	if _, err := NewLocalSigner("not-a-key"); err == nil {
		t.Error("expected error for garbage key")
	}
	if _, err := NewLocalSigner("nsec1invalid"); err == nil {
		t.Error("expected error for malformed nsec")
	}
}

func TestNoopSigner(t *testing.T) {
	sgn := NoopSigner{}

	if sgn.Capability() != Unavailable {
		t.Error("expected noop signer to be unavailable")
	}

	if _, err := sgn.PublicKey(context.Background()); !errors.Is(err, commonerrors.ErrNoSignerAvailable) {
		t.Errorf("expected no signer error, got %v", err)
	}
	if err := sgn.SignEvent(context.Background(), &nostr.Event{}); !errors.Is(err, commonerrors.ErrNoSignerAvailable) {
		t.Errorf("expected no signer error, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	sgn, err := FromConfig("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sgn.Capability() != Unavailable {
		t.Error("expected unavailable signer without a key")
	}

	sgn, err = FromConfig(nostr.GeneratePrivateKey())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sgn.Capability() != Available {
		t.Error("expected available signer with a key")
	}
}
