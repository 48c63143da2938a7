package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	"github.com/nostrid/nip05-registry/internal/common/logger"
)

func setupErrorHandler(t *testing.T) *ErrorHandler {
	_ = t
	log, _ := logger.New("", "test", "error")
	return NewErrorHandler(log)
}

func TestHandleError_DomainErrorMapsToStatus(t *testing.T) {
	handler := setupErrorHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nip05", nil)
	rec := httptest.NewRecorder()
	handler.HandleError(rec, req, commonerrors.ErrIdentityNotFound)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != commonerrors.ErrIdentityNotFound.Message() {
		t.Errorf("unexpected error message %q", resp.Error)
	}
}

func TestHandleError_UnknownErrorStaysOpaque(t *testing.T) {
	handler := setupErrorHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nip05", nil)
	rec := httptest.NewRecorder()
	handler.HandleError(rec, req, errors.New("pq: connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != commonerrors.ErrInternal.Message() {
		t.Errorf("internal detail leaked into response: %q", resp.Error)
	}
}
