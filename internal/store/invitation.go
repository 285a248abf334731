package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stepweaver/cashflow-server/internal/domain"
)

// CreateInvitation persists a new invitation.
// Returns ErrAlreadyExists when a pending invitation for the same
// normalized email already exists (pending_email index conflict).
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return s.Invitations.Create(ctx, inv.ID, inv)
}

// GetInvitation retrieves an invitation by ID.
func (s *Store) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	return s.Invitations.Get(ctx, invitationID)
}

// GetInvitationByToken resolves the raw bearer token to an invitation.
// Returns ErrNotFound for unknown tokens; callers treat that as an invalid
// token, not a distinct condition.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	return s.Invitations.GetByIndex(ctx, "token", token)
}

// ListInvitations returns all invitations, newest first.
func (s *Store) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	var invitations []*domain.Invitation
	for inv, err := range s.Invitations.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list invitations: %w", err)
		}
		invitations = append(invitations, inv)
	}

	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.After(invitations[j].CreatedAt)
	})

	return invitations, nil
}

// AcceptInvitation performs the conditional pending -> accepted transition.
//
// The whole check-and-transition runs inside one badger update transaction,
// so two concurrent accepts of the same token cannot both succeed: the loser
// observes the already-accepted record and gets ErrNotPending.
//
// Failure modes, checked in order against the freshly-read record:
//   - token no longer matches (resent or never existed): ErrNotFound
//   - status is not pending: ErrNotPending
//   - expiry has passed: ErrInvitationExpired, with no mutation; the
//     stored status deliberately remains pending
func (s *Store) AcceptInvitation(ctx context.Context, token, acceptedBy string, now time.Time) (*domain.Invitation, error) {
	current, err := s.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return s.Invitations.Mutate(ctx, current.ID, func(inv *domain.Invitation) error {
		if inv.Token != token {
			return ErrNotFound
		}
		if inv.Status != domain.InvitationPending {
			return ErrNotPending
		}
		if inv.IsExpiredAt(now) {
			return ErrInvitationExpired
		}

		accepted := now
		inv.Status = domain.InvitationAccepted
		inv.AcceptedAt = &accepted
		inv.AcceptedBy = acceptedBy
		return nil
	})
}

// CancelInvitation performs the conditional pending -> cancelled transition.
// An invitation past its expiry but still stored as pending can be
// cancelled; there is no expiry check here. Non-pending records return
// ErrNotPending.
func (s *Store) CancelInvitation(ctx context.Context, invitationID string, now time.Time) (*domain.Invitation, error) {
	return s.Invitations.Mutate(ctx, invitationID, func(inv *domain.Invitation) error {
		if inv.Status != domain.InvitationPending {
			return ErrNotPending
		}

		cancelled := now
		inv.Status = domain.InvitationCancelled
		inv.CancelledAt = &cancelled
		return nil
	})
}

// ResendInvitation rotates a pending invitation's token and expiry.
// The record stays pending; the old token immediately stops resolving.
func (s *Store) ResendInvitation(ctx context.Context, invitationID, newToken string, newExpiry, now time.Time) (*domain.Invitation, error) {
	return s.Invitations.Mutate(ctx, invitationID, func(inv *domain.Invitation) error {
		if inv.Status != domain.InvitationPending {
			return ErrNotPending
		}

		resent := now
		inv.Token = newToken
		inv.ExpiresAt = newExpiry
		inv.ResentAt = &resent
		return nil
	})
}
