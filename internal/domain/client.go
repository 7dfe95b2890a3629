package domain

import (
	"strings"
	"time"
)

// Client is a dealership customer, referenced by sales and financing contracts.
type Client struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// FirstName is the given name.
	FirstName string `json:"first_name"`

	// LastName is the family name.
	LastName string `json:"last_name"`

	// Email is the contact email. Globally unique.
	Email string `json:"email"`

	// Phone is the contact phone number.
	Phone string `json:"phone"`

	// CreatedAt is the timestamp when the client was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last modification.
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the display name.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks required fields.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return NewDomainError(ErrValidation, "first_name is required", "")
	}
	email := strings.TrimSpace(c.Email)
	if email == "" || !strings.Contains(email, "@") {
		return NewDomainError(ErrValidation, "email is invalid", email)
	}
	return nil
}
