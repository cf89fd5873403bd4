package maintenance

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
)

// Handler exposes the maintenance kickoff endpoint.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// MountRoutes registers maintenance routes on the router. The kickoff route
// carries its own tighter rate limit; the guard store already throttles the
// work, this just keeps hammering off the guard path.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/kickoff", h.kickoff)
}

type kickoffResponse struct {
	Success bool         `json:"success"`
	Results []TaskResult `json:"results"`
}

func (h *Handler) kickoff(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	results := h.coordinator.Run(r.Context(), principal.ID, principal.Role)
	httpx.JSON(w, http.StatusOK, kickoffResponse{Success: true, Results: results})
}
