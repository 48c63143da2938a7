package http

import (
	"net/http"
	"time"

	commonhttp "github.com/nostrid/nip05-registry/internal/common/http"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/session"
	"github.com/nostrid/nip05-registry/internal/zap/service"
)

type zapRequest struct {
	RecipientAddress string   `json:"recipientAddress" validate:"max=320"`
	RecipientPubKey  string   `json:"recipientPubKey" validate:"max=256"`
	AmountSats       int64    `json:"amountSats"`
	Comment          string   `json:"comment" validate:"max=500"`
	Relays           []string `json:"relays" validate:"max=20,dive,max=512"`
}

type Handler struct {
	service      *service.Service
	sessions     *session.Manager
	log          *logger.Logger
	errorHandler *commonhttp.ErrorHandler
}

// NewHandler builds the zap endpoints. sessions may be nil when the
// service runs without a signer; the send endpoint then fails with the
// signer error alone.
func NewHandler(svc *service.Service, sessions *session.Manager, log *logger.Logger) *Handler {
	return &Handler{
		service:      svc,
		sessions:     sessions,
		log:          log,
		errorHandler: commonhttp.NewErrorHandler(log),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, timeout time.Duration) {
	mux.HandleFunc("/api/zaps/invoice",
		commonhttp.RequireMethod(http.MethodPost)(commonhttp.WithTimeout(timeout)(h.RequestInvoice)))
	mux.HandleFunc("/api/zaps/send",
		commonhttp.RequireMethod(http.MethodPost)(commonhttp.WithTimeout(timeout)(h.SendZap)))
}

func (h *Handler) RequestInvoice(w http.ResponseWriter, r *http.Request) {
	var req zapRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field, err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid field: "+field)
		return
	}

	result, err := h.service.RequestInvoice(r.Context(), service.InvoiceRequest{
		RecipientAddress: req.RecipientAddress,
		RecipientPubKey:  req.RecipientPubKey,
		AmountSats:       req.AmountSats,
		Comment:          req.Comment,
		Relays:           req.Relays,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, result)
}

// ensureSignerSession keeps the service's own signer session alive
// around outgoing zaps: re-login when expired, budget the action, slide
// the expiry on use.
func (h *Handler) ensureSignerSession(r *http.Request) error {
	ctx := r.Context()

	if _, err := h.sessions.RequireAuth(ctx); err != nil {
		if _, loginErr := h.sessions.Login(ctx); loginErr != nil {
			return loginErr
		}
	}

	if err := h.sessions.AllowAction(ctx, "zap"); err != nil {
		return err
	}

	_, err := h.sessions.Refresh(ctx)
	return err
}

func (h *Handler) SendZap(w http.ResponseWriter, r *http.Request) {
	var req zapRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field, err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid field: "+field)
		return
	}

	if h.sessions != nil {
		if err := h.ensureSignerSession(r); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	result, err := h.service.SendZap(r.Context(), service.InvoiceRequest{
		RecipientAddress: req.RecipientAddress,
		RecipientPubKey:  req.RecipientPubKey,
		AmountSats:       req.AmountSats,
		Comment:          req.Comment,
		Relays:           req.Relays,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, result)
}
