package domain

import (
	"strings"
	"time"
)

// Role is the coarse authorization level of a back-office user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User is a back-office account. Business logic only depends on the username
// uniqueness constraint; everything else is authentication plumbing.
type User struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// Username is the login name. Globally unique.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the password. Never serialized.
	PasswordHash string `json:"-"`

	// Role is the authorization level.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields.
func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return NewDomainError(ErrValidation, "username must be at least 3 characters", "")
	}
	if u.Role != RoleAdmin && u.Role != RoleUser {
		return NewDomainError(ErrValidation, "role must be ADMIN or USER", u.Username)
	}
	return nil
}
