package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role represents a user's privilege level.
type Role string

// RoleAdmin is the only privileged role. An empty role means a regular member.
const (
	RoleMember Role = ""
	RoleAdmin  Role = "admin"
)

// IsAdmin reports whether the role grants privileged access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a marketplace account keyed by email.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Role         Role      `json:"role,omitempty"`
	Image        string    `json:"image,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Education    string    `json:"education,omitempty"`
	LinkedIn     string    `json:"linkedin,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword returns true if a password is bound to the account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail trims and case-folds an email so lookups are case-insensitive.
// A Caser is stateful, so one is created per call.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
