package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
	"github.com/fibra-studio/fibra-core/internal/shared"
)

// Handler exposes session endpoints plus the caller's permission view.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Get("/permissions", h.permissions)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "invalid credentials")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	sess.SetUser(account.ID.String())

	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":    account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  account.Role.String(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser("")
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, err := RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":    principal.ID,
		"email": principal.Email,
		"role":  principal.Role.String(),
	})
}

type modulePermission struct {
	Module     string          `json:"module"`
	Label      string          `json:"label"`
	Permission rbac.Permission `json:"permission"`
}

// permissions returns the caller's full capability view: one entry per
// accessible module, in matrix declaration order.
func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	principal, err := RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	accessible := rbac.AccessibleModules(principal.Role)
	out := make([]modulePermission, 0, len(accessible))
	for _, module := range accessible {
		out = append(out, modulePermission{
			Module:     module.String(),
			Label:      module.Label(),
			Permission: rbac.GetPermission(principal.Role, module),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":    principal.Role.String(),
		"modules": out,
	})
}
