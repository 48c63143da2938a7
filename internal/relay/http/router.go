package http

import (
	"net/http"
	"time"

	commonhttp "github.com/nostrid/nip05-registry/internal/common/http"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/relay/service"
)

type Handler struct {
	prober        *service.Prober
	log           *logger.Logger
	defaultRelays []string
}

func NewHandler(prober *service.Prober, defaultRelays []string, log *logger.Logger) *Handler {
	return &Handler{
		prober:        prober,
		log:           log,
		defaultRelays: defaultRelays,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, timeout time.Duration) {
	mux.HandleFunc("/api/relays/status",
		commonhttp.RequireMethod(http.MethodGet)(commonhttp.WithTimeout(timeout)(h.Status)))
}

// Status probes the relays given as repeated url params, or the
// configured defaults when none are given.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["url"]
	if len(urls) == 0 {
		urls = h.defaultRelays
	}

	statuses := h.prober.Probe(r.Context(), urls)
	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{"relays": statuses})
}
