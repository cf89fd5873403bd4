package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// Handler exposes the notification HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Post("/{id}/read", h.markRead)
	r.Post("/broadcast", h.broadcast)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.service.ListForUser(r.Context(), principal.ID, limit)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	summary, err := h.service.UnreadSummary(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("notification summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("malformed notification id: %w", httpx.ErrValidation))
		return
	}

	if err := h.service.MarkRead(r.Context(), id, principal.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type broadcastRequest struct {
	Roles   []string `json:"roles" validate:"required,min=1,dive,required"`
	Type    string   `json:"type" validate:"required,max=64"`
	Message string   `json:"message" validate:"required,max=2000"`
}

// broadcast lets management push a notification to whole roles at once.
func (h *Handler) broadcast(w http.ResponseWriter, r *http.Request) {
	_, err := auth.RequireAnyRole(r.Context(), rbac.RoleAdmin, rbac.RoleManagement)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req broadcastRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%s: %w", err.Error(), httpx.ErrValidation))
		return
	}

	roles := make([]rbac.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		role, err := rbac.ParseRole(name)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%s: %w", err.Error(), httpx.ErrValidation))
			return
		}
		roles = append(roles, role)
	}

	if err := h.service.NotifyRoles(r.Context(), roles, req.Type, req.Message); err != nil {
		h.logger.Error("broadcast notification", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
