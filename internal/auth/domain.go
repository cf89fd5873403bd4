// Package auth resolves the calling principal and gates every privileged
// operation against the access matrix.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// Principal describes the authenticated actor for the current request.
type Principal struct {
	ID    uuid.UUID
	Role  rbac.Role
	Email string
}

// Gate failures. Both wrap the httpx sentinels so handlers translate them to
// 401/403 without importing this package's internals.
var (
	ErrUnauthenticated = fmt.Errorf("auth: %w", httpx.ErrUnauthenticated)
	ErrUnauthorized    = fmt.Errorf("auth: %w", httpx.ErrForbidden)
)

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, reporting whether one exists.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
