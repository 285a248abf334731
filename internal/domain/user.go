package domain

import "time"

// User represents an account created by accepting an invitation.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"` // Normalized: lower-case, trimmed
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	IsAdmin      bool      `json:"is_admin"`
	Active       bool      `json:"active"`
	InvitedBy    string    `json:"invited_by,omitempty"` // User ID who invited this user
	CreatedAt    time.Time `json:"created_at"`
}

// Sanitized returns a copy safe for API responses.
func (u *User) Sanitized() User {
	out := *u
	out.PasswordHash = ""
	return out
}
