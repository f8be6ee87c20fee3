package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
)

// userRepo implements the user repository on the document store
type userRepo struct {
	store *DocumentStore
}

// NewUserRepo creates a new user repository
func NewUserRepo(store *DocumentStore) repo.UserRepo {
	return &userRepo{store: store}
}

// Get returns the stored role and name of userID
func (r *userRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var user *domain.User
	err := r.store.View(ctx, func(doc *Document) error {
		user = userFromDocument(doc, userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetRole assigns role to userID once
func (r *userRepo) SetRole(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}
	err := r.store.Update(ctx, func(doc *Document) error {
		if current := doc.UserRoles[userID]; current != "" {
			if current == string(role) {
				return nil
			}
			return domain.ErrRoleAlreadySet
		}
		for id, held := range doc.UserRoles {
			if id != userID && held == string(role) {
				return domain.ErrRoleTaken
			}
		}
		doc.UserRoles[userID] = string(role)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// SetName stores the display name
func (r *userRepo) SetName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	err := r.store.Update(ctx, func(doc *Document) error {
		doc.UserNames[userID] = name
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set name: %w", err)
	}
	return nil
}

// ResolvePartner returns the single other user holding the opposite role.
// No match, or more than one, yields nil.
func (r *userRepo) ResolvePartner(ctx context.Context, userID string) (*domain.User, error) {
	var partner *domain.User
	err := r.store.View(ctx, func(doc *Document) error {
		partner = resolvePartner(doc, userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve partner: %w", err)
	}
	return partner, nil
}

func resolvePartner(doc *Document, userID string) *domain.User {
	role := domain.Role(doc.UserRoles[userID])
	if !role.Valid() {
		return nil
	}
	want := role.Opposite()

	var found string
	for id, held := range doc.UserRoles {
		if id == userID || domain.Role(held) != want {
			continue
		}
		if found != "" {
			return nil
		}
		found = id
	}
	if found == "" {
		return nil
	}
	return userFromDocument(doc, found)
}

func userFromDocument(doc *Document, userID string) *domain.User {
	return &domain.User{
		ID:   userID,
		Role: domain.Role(doc.UserRoles[userID]),
		Name: doc.UserNames[userID],
	}
}
