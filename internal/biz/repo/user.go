package repo

import (
	"context"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

// UserRepo is the user repository interface
// Responsible for roles and display names stored in the document
type UserRepo interface {
	// Get returns the user; a user never seen before comes back with empty role and name
	Get(ctx context.Context, userID string) (*domain.User, error)

	// SetRole assigns a role once. Fails with ErrRoleTaken or ErrRoleAlreadySet.
	SetRole(ctx context.Context, userID string, role domain.Role) error

	// SetName sets the display name
	SetName(ctx context.Context, userID, name string) error

	// ResolvePartner returns the unique other user holding the opposite role,
	// or nil when there is none
	ResolvePartner(ctx context.Context, userID string) (*domain.User, error)
}
