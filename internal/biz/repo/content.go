package repo

import (
	"context"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

// ContentRepo stores the media paths partners submit for each other
type ContentRepo interface {
	// Add appends a relative media path to the collection of role
	Add(ctx context.Context, role domain.Role, kind domain.MediaKind, path string) error

	// List returns the media paths submitted for role, falling back to the
	// shared collection when role has none
	List(ctx context.Context, role domain.Role, kind domain.MediaKind) ([]string, error)

	// Canned returns the canned content stored alongside the media
	Canned(ctx context.Context) (*domain.CannedContent, error)
}
