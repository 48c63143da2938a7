package http

import (
	"net/http"
	"time"

	commonhttp "github.com/nostrid/nip05-registry/internal/common/http"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/stats/service"
)

type Handler struct {
	service      *service.StatsService
	errorHandler *commonhttp.ErrorHandler
}

func NewHandler(svc *service.StatsService, log *logger.Logger) *Handler {
	return &Handler{
		service:      svc,
		errorHandler: commonhttp.NewErrorHandler(log),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, timeout time.Duration) {
	mux.HandleFunc("/api/stats",
		commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(timeout)(h.Stats)))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Collect(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, stats)
}
