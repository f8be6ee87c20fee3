package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
)

const maxNameLength = 64

// ErrInvalidName is returned for empty or overly long names
var ErrInvalidName = errors.New("name must be 1-64 characters")

// UserUsecase handles onboarding: role and display name
type UserUsecase struct {
	userRepo repo.UserRepo
}

// NewUserUsecase creates a new user usecase
func NewUserUsecase(userRepo repo.UserRepo) *UserUsecase {
	return &UserUsecase{userRepo: userRepo}
}

// Get returns the user, with empty role and name if never onboarded
func (uc *UserUsecase) Get(ctx context.Context, userID string) (*domain.User, error) {
	return uc.userRepo.Get(ctx, userID)
}

// NormalizeName trims and validates a display name
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Register assigns role and name in one confirmation step
func (uc *UserUsecase) Register(ctx context.Context, userID string, role domain.Role, name string) (*domain.User, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := uc.userRepo.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if err := uc.userRepo.SetName(ctx, userID, name); err != nil {
		return nil, err
	}
	return &domain.User{ID: userID, Role: role, Name: name}, nil
}

// Partner returns the resolved partner or nil
func (uc *UserUsecase) Partner(ctx context.Context, userID string) (*domain.User, error) {
	return uc.userRepo.ResolvePartner(ctx, userID)
}
