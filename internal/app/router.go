package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/maintenance"
	"github.com/fibra-studio/fibra-core/internal/notify"
	"github.com/fibra-studio/fibra-core/internal/shared"
	"github.com/fibra-studio/fibra-core/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthMiddleware     auth.Middleware
	AuthHandler        *auth.Handler
	NotifyHandler      *notify.Handler
	MaintenanceHandler *maintenance.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Fibra defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Auth:           params.AuthMiddleware,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/notifications", params.NotifyHandler.MountRoutes)
	r.Route("/maintenance", params.MaintenanceHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
