package domain

import "errors"

// Role is one of the two mutually exclusive partner tags
type Role string

const (
	RoleBoyfriend  Role = "boyfriend"
	RoleGirlfriend Role = "girlfriend"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrRoleTaken      = errors.New("role already taken by another user")
	ErrRoleAlreadySet = errors.New("role already set")
	ErrNoRole         = errors.New("role not set")
	ErrNoPartner      = errors.New("partner not found")
)

// ParseRole validates a role tag
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBoyfriend, RoleGirlfriend:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether r is one of the known tags
func (r Role) Valid() bool {
	return r == RoleBoyfriend || r == RoleGirlfriend
}

// Opposite returns the partner tag. The empty role has no opposite.
func (r Role) Opposite() Role {
	switch r {
	case RoleBoyfriend:
		return RoleGirlfriend
	case RoleGirlfriend:
		return RoleBoyfriend
	}
	return ""
}

// User represents a bot user (value object)
type User struct {
	ID   string // platform open_id
	Role Role
	Name string
}

// HasRole reports whether onboarding assigned a role
func (u *User) HasRole() bool {
	return u != nil && u.Role.Valid()
}

// DisplayName returns the name, falling back to the role tag
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Role != "" {
		return string(u.Role)
	}
	return "your partner"
}
