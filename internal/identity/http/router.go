package http

import (
	"errors"
	"net/http"
	"time"

	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	commonhttp "github.com/nostrid/nip05-registry/internal/common/http"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/identity/service"
)

type registerRequest struct {
	Username  string `json:"username" validate:"max=256"`
	PublicKey string `json:"publicKey" validate:"max=256"`
}

type updateProfileRequest struct {
	Username         string   `json:"username" validate:"max=256"`
	PublicKey        string   `json:"publicKey" validate:"max=256"`
	LightningAddress string   `json:"lightningAddress" validate:"max=320"`
	Relays           []string `json:"relays" validate:"max=50,dive,max=512"`
}

type Handler struct {
	service      service.Service
	log          *logger.Logger
	errorHandler *commonhttp.ErrorHandler
}

func NewHandler(svc service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service:      svc,
		log:          log,
		errorHandler: commonhttp.NewErrorHandler(log),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, timeout time.Duration) {
	mux.HandleFunc("/.well-known/nostr.json",
		commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(timeout)(h.WellKnown)))
	mux.HandleFunc("/api/nip05", commonhttp.WithTimeout(timeout)(h.Nip05))
	mux.HandleFunc("/api/profile", commonhttp.WithTimeout(timeout)(h.Profile))
	mux.HandleFunc("/api/members",
		commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(timeout)(h.Members)))
}

// WellKnown serves the NIP-05 discovery document. Failures answer with a
// bare empty object so callers never see storage detail.
func (h *Handler) WellKnown(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	var (
		doc service.NIP05Document
		err error
	)
	if name == "" {
		doc, err = h.service.ResolveAll(r.Context())
	} else {
		doc, err = h.service.Resolve(r.Context(), name)
	}
	if err != nil {
		if errors.Is(err, commonerrors.ErrIdentityNotFound) {
			commonhttp.WriteEmpty(w, http.StatusNotFound)
			return
		}
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "well_known_failed",
		}).Errorf("resolve failed: %v", err)
		commonhttp.WriteEmpty(w, http.StatusInternalServerError)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) Nip05(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.resolveNip05(w, r)
	case http.MethodPost:
		h.register(w, r)
	default:
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) resolveNip05(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		commonhttp.WriteError(w, http.StatusBadRequest, "name parameter is required")
		return
	}

	doc, err := h.service.Resolve(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field, err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid field: "+field)
		return
	}

	doc, err := h.service.Register(r.Context(), req.Username, req.PublicKey)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.updateProfile(w, r)
	case http.MethodDelete:
		h.deleteProfile(w, r)
	default:
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field, err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid field: "+field)
		return
	}

	identity, err := h.service.UpdateProfile(r.Context(), service.UpdateProfileInput{
		PublicKey:        req.PublicKey,
		Username:         req.Username,
		LightningAddress: req.LightningAddress,
		Relays:           req.Relays,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{
		"username":         identity.Username,
		"publicKey":        identity.PublicKey,
		"lightningAddress": identity.LightningAddress,
		"relays":           identity.Relays,
	})
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	publicKey := r.URL.Query().Get("publicKey")
	if publicKey == "" {
		commonhttp.WriteError(w, http.StatusBadRequest, "publicKey parameter is required")
		return
	}

	if err := h.service.Delete(r.Context(), publicKey); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{"members": members})
}
