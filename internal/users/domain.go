// Package users provides lookup of platform user accounts.
package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// User represents a platform account.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         rbac.Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
