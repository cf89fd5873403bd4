package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// RequireAuthenticated resolves the caller's principal from context. Every
// privileged operation goes through this or one of the stricter variants
// below before touching data.
func RequireAuthenticated(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID == uuid.Nil || !p.Role.Valid() {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}

// RequireModuleAccess authenticates the caller and checks module visibility
// against the access matrix. Denial is Unauthorized, distinct from an absent
// session.
func RequireModuleAccess(ctx context.Context, module rbac.Module) (Principal, error) {
	p, err := RequireAuthenticated(ctx)
	if err != nil {
		return Principal{}, err
	}
	if !rbac.CanAccess(p.Role, module) {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}

// RequireAnyRole authenticates the caller and checks role membership.
func RequireAnyRole(ctx context.Context, allowed ...rbac.Role) (Principal, error) {
	p, err := RequireAuthenticated(ctx)
	if err != nil {
		return Principal{}, err
	}
	for _, role := range allowed {
		if p.Role == role {
			return p, nil
		}
	}
	return Principal{}, ErrUnauthorized
}
