package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/shared"
	"github.com/fibra-studio/fibra-core/internal/users"
)

// Directory looks up accounts for principal resolution.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Middleware turns the session's user id into a Principal on the request
// context. Requests without a valid session pass through anonymous; the gate
// rejects them at the operation boundary.
type Middleware struct {
	Directory Directory
	Logger    *slog.Logger
}

// ResolvePrincipal is the http middleware entry point.
func (m Middleware) ResolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(sess.User())
		if err != nil {
			m.Logger.Warn("session holds malformed user id", slog.String("value", sess.User()))
			next.ServeHTTP(w, r)
			return
		}

		account, err := m.Directory.GetByID(r.Context(), id)
		if err != nil {
			m.Logger.Warn("principal lookup failed", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if !account.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), Principal{
			ID:    account.ID,
			Role:  account.Role,
			Email: account.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
