package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	base := NewDomainError("SOME_CODE", CategoryValidation, http.StatusBadRequest, "some message")

	derived := base.WithCause(errors.New("root cause"))
	if !errors.Is(derived, base) {
		t.Error("expected WithCause to preserve identity")
	}

	reworded := base.WithMessage("another message")
	if !errors.Is(reworded, base) {
		t.Error("expected WithMessage to preserve identity")
	}
	if reworded.Message() != "another message" {
		t.Errorf("expected swapped message, got %q", reworded.Message())
	}

	other := NewDomainError("OTHER_CODE", CategoryValidation, http.StatusBadRequest, "some message")
	if errors.Is(other, base) {
		t.Error("expected different codes not to match")
	}
}

func TestDomainError_UnwrapAndError(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrStorage.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if got := err.Error(); got != "storage operation failed: root cause" {
		t.Errorf("unexpected error string %q", got)
	}
}

func TestAsDomainError_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("while registering: %w", ErrIdentityNotFound)

	domainErr, ok := AsDomainError(wrapped)
	if !ok {
		t.Fatal("expected a domain error through the wrap chain")
	}
	if domainErr.Code() != "NOT_FOUND" {
		t.Errorf("unexpected code %q", domainErr.Code())
	}

	if _, ok := AsDomainError(errors.New("plain")); ok {
		t.Error("expected plain errors not to match")
	}
}
