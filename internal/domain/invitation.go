package domain

import (
	"strings"
	"time"
)

// InvitationStatus represents the stored lifecycle state of an invitation.
type InvitationStatus string

const (
	// InvitationPending indicates the invitation can still be accepted.
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted indicates the invitation was claimed. Terminal.
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationExpired indicates the invitation lapsed before acceptance. Terminal.
	InvitationExpired InvitationStatus = "expired"
	// InvitationCancelled indicates an admin withdrew the invitation. Terminal.
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation represents a time-boxed, single-use account invitation.
// The token is a bearer secret resolved by database lookup, not a signed
// session token, and must never be logged.
type Invitation struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"` // Normalized: lower-case, trimmed
	DisplayName string           `json:"display_name,omitempty"`
	InvitedBy   string           `json:"invited_by"` // User ID of the creating admin
	Token       string           `json:"token"`      // 256-bit random, URL-safe
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
	AcceptedBy  string           `json:"accepted_by,omitempty"` // User ID created by the accept
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
	ResentAt    *time.Time       `json:"resent_at,omitempty"`
}

// IsPending returns true if the stored status is pending.
// Note that a pending invitation may still be past its expiry; expiry is a
// derived fact until an accept attempt forces the issue.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsExpiredAt returns true if the invitation has lapsed as of now.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus returns the status an invitation should display as of now.
// A stored pending status past its expiry reads as expired without any
// mutation of the record.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpiredAt(now) {
		return InvitationExpired
	}
	return i.Status
}

// NormalizeEmail lower-cases and trims an email address for storage and
// pending-uniqueness comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
