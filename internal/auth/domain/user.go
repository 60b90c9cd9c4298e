package domain

import (
	"slices"
	"time"
)

// Default grants for self-registered users.
var (
	DefaultRoles  = []string{"ROLE_USER"}
	DefaultScopes = []string{"read", "write"}
)

const (
	RoleUser    = "ROLE_USER"
	RoleAdmin   = "ROLE_ADMIN"
	RoleService = "ROLE_SERVICE"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string
	Roles        []string
	Scopes       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Profile is the user view returned to other services. It never carries the
// password hash.
type Profile struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Roles       []string   `json:"roles"`
	Scopes      []string   `json:"scopes"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Roles:       nonNil(u.Roles),
		Scopes:      nonNil(u.Scopes),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
