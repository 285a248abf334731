package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/domain"
	"github.com/stepweaver/cashflow-server/internal/email"
	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
	"github.com/stepweaver/cashflow-server/internal/id"
	"github.com/stepweaver/cashflow-server/internal/store"
	"github.com/stepweaver/cashflow-server/internal/validation"
)

const (
	// invitationTokenSize is the number of random bytes in an invitation
	// token (32 bytes = 256 bits of entropy).
	invitationTokenSize = 32
	// defaultInvitationExpiry is the time until an invitation lapses.
	defaultInvitationExpiry = 7 * 24 * time.Hour
)

// InviteService handles invitation creation, acceptance, and revocation.
type InviteService struct {
	store    *store.Store
	sender   email.Sender
	validate *validation.Validator
	logger   *slog.Logger
	baseURL  string
	expiry   time.Duration

	now func() time.Time
}

// NewInviteService creates a new invite service. baseURL is the public
// web address accept links are built against. An expiry of zero uses
// the 7-day default.
func NewInviteService(
	st *store.Store,
	sender email.Sender,
	validate *validation.Validator,
	logger *slog.Logger,
	baseURL string,
	expiry time.Duration,
) *InviteService {
	if expiry <= 0 {
		expiry = defaultInvitationExpiry
	}
	return &InviteService{
		store:    st,
		sender:   sender,
		validate: validate,
		logger:   logger,
		baseURL:  baseURL,
		expiry:   expiry,
		now:      time.Now,
	}
}

// CreateInvitationRequest contains the data needed to create an invitation.
type CreateInvitationRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// InvitationView is the admin-facing shape of an invitation. The raw
// token is deliberately absent.
type InvitationView struct {
	ID          string                  `json:"id"`
	Email       string                  `json:"email"`
	DisplayName string                  `json:"display_name,omitempty"`
	InvitedBy   string                  `json:"invited_by"`
	Status      domain.InvitationStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
	AcceptedAt  *time.Time              `json:"accepted_at,omitempty"`
	ResentAt    *time.Time              `json:"resent_at,omitempty"`
}

// InvitationDetails is the public shape returned for token lookups on
// the accept landing page. Status is the derived read-time status; a
// pending record past its expiry reads as expired here without any
// stored-status mutation.
type InvitationDetails struct {
	Email       string                  `json:"email"`
	DisplayName string                  `json:"display_name,omitempty"`
	InvitedBy   string                  `json:"invited_by"`
	Status      domain.InvitationStatus `json:"status"`
	Valid       bool                    `json:"valid"`
}

// AcceptInvitationRequest contains the data needed to accept an invitation.
type AcceptInvitationRequest struct {
	Token       string `json:"token" validate:"required"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

func (s *InviteService) view(inv *domain.Invitation) *InvitationView {
	v := &InvitationView{
		ID:          inv.ID,
		Email:       inv.Email,
		DisplayName: inv.DisplayName,
		InvitedBy:   inv.InvitedBy,
		Status:      inv.EffectiveStatus(s.now()),
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
		AcceptedAt:  inv.AcceptedAt,
		ResentAt:    inv.ResentAt,
	}
	return v
}

// CreateInvitation invites an email address. At most one pending
// invitation may exist per normalized email.
func (s *InviteService) CreateInvitation(ctx context.Context, invitedBy string, req CreateInvitationRequest) (*InvitationView, error) {
	// Normalize before validating so "  New@Example.COM " passes the
	// email check and dedupes against its canonical form.
	req.Email = domain.NormalizeEmail(req.Email)
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	normalized := req.Email

	// Reject emails that already belong to an account.
	existing, err := s.store.GetUserByEmail(ctx, normalized)
	if err == nil && existing != nil {
		return nil, domainerrors.DuplicateInvitation("a user with this email already exists")
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	invitationID, err := id.Generate("inv")
	if err != nil {
		return nil, fmt.Errorf("generate invitation ID: %w", err)
	}

	now := s.now()
	inv := &domain.Invitation{
		ID:          invitationID,
		Email:       normalized,
		DisplayName: req.DisplayName,
		InvitedBy:   invitedBy,
		Token:       token,
		Status:      domain.InvitationPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.expiry),
	}

	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.DuplicateInvitation("a pending invitation already exists for this email")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Invitation created",
			"invitation_id", inv.ID,
			"email", inv.Email,
			"invited_by", invitedBy,
		)
	}

	s.sendInvitationEmail(ctx, inv)

	return s.view(inv), nil
}

// sendInvitationEmail delivers the accept link. Delivery failure is not
// fatal; the invitation stands and can be resent.
func (s *InviteService) sendInvitationEmail(ctx context.Context, inv *domain.Invitation) {
	if s.sender == nil {
		return
	}

	inviterName := ""
	if inviter, err := s.store.GetUser(ctx, inv.InvitedBy); err == nil {
		inviterName = inviter.DisplayName
	}

	msg := email.InvitationMessage(inv.Email, inv.DisplayName, inviterName, s.baseURL, inv.Token)
	deliveryID, err := s.sender.Send(ctx, msg)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to send invitation email",
				"invitation_id", inv.ID,
				"email", inv.Email,
				"error", err,
			)
		}
		return
	}

	if s.logger != nil {
		s.logger.Info("Invitation email sent",
			"invitation_id", inv.ID,
			"delivery_id", deliveryID,
		)
	}
}

// GetInvitationDetails returns the public details for a token (for the
// accept landing page). Expired, cancelled, and accepted invitations
// report Valid=false rather than an error.
func (s *InviteService) GetInvitationDetails(ctx context.Context, token string) (*InvitationDetails, error) {
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	inviterName := "Unknown"
	if inviter, err := s.store.GetUser(ctx, inv.InvitedBy); err == nil {
		inviterName = inviter.DisplayName
	}

	status := inv.EffectiveStatus(s.now())
	return &InvitationDetails{
		Email:       inv.Email,
		DisplayName: inv.DisplayName,
		InvitedBy:   inviterName,
		Status:      status,
		Valid:       status == domain.InvitationPending,
	}, nil
}

// AcceptInvitation claims a pending invitation and creates the account.
// Exactly one accept can win; concurrent attempts on the same token get
// an already-used error.
func (s *InviteService) AcceptInvitation(ctx context.Context, req AcceptInvitationRequest) (*domain.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	inv, err := s.store.GetInvitationByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown tokens are indistinguishable from invalid ones.
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	// Catch accounts created since the invitation went out before the
	// token is consumed.
	if existing, err := s.store.GetUserByEmail(ctx, inv.Email); err == nil && existing != nil {
		return nil, domainerrors.AlreadyUsed("an account already exists for this email")
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.now()
	accepted, err := s.store.AcceptInvitation(ctx, req.Token, userID, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.ErrInvalidToken
		case errors.Is(err, store.ErrNotPending):
			return nil, domainerrors.AlreadyUsed("invitation has already been used")
		case errors.Is(err, store.ErrInvitationExpired):
			return nil, domainerrors.Expired("invitation has expired")
		default:
			return nil, fmt.Errorf("accept invitation: %w", err)
		}
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = accepted.DisplayName
	}

	user := &domain.User{
		ID:           userID,
		Email:        accepted.Email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Active:       true,
		InvitedBy:    accepted.InvitedBy,
		CreatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// The invitation is consumed but the account failed. Surface an
		// internal error; an admin can resend after cleanup.
		if s.logger != nil {
			s.logger.Error("Failed to create user for accepted invitation",
				"invitation_id", accepted.ID,
				"user_id", userID,
				"error", err,
			)
		}
		return nil, domainerrors.Internal("failed to create account")
	}

	if s.logger != nil {
		s.logger.Info("Invitation accepted",
			"invitation_id", accepted.ID,
			"user_id", userID,
			"email", user.Email,
		)
	}

	return user, nil
}

// CancelInvitation withdraws a pending invitation.
func (s *InviteService) CancelInvitation(ctx context.Context, invitationID string) (*InvitationView, error) {
	inv, err := s.store.CancelInvitation(ctx, invitationID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("invitation not found")
		case errors.Is(err, store.ErrNotPending):
			return nil, domainerrors.NotPending("invitation is not pending")
		default:
			return nil, fmt.Errorf("cancel invitation: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("Invitation cancelled",
			"invitation_id", invitationID,
		)
	}

	return s.view(inv), nil
}

// ResendInvitation rotates the token and expiry of a pending invitation
// and re-delivers the email. The previous token stops resolving.
func (s *InviteService) ResendInvitation(ctx context.Context, invitationID string) (*InvitationView, error) {
	token, err := generateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	now := s.now()
	inv, err := s.store.ResendInvitation(ctx, invitationID, token, now.Add(s.expiry), now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("invitation not found")
		case errors.Is(err, store.ErrNotPending):
			return nil, domainerrors.NotPending("invitation is not pending")
		default:
			return nil, fmt.Errorf("resend invitation: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("Invitation resent",
			"invitation_id", invitationID,
		)
	}

	s.sendInvitationEmail(ctx, inv)

	return s.view(inv), nil
}

// ListInvitations returns all invitations, newest first. Pending
// records past their expiry read as expired.
func (s *InviteService) ListInvitations(ctx context.Context) ([]*InvitationView, error) {
	invitations, err := s.store.ListInvitations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	views := make([]*InvitationView, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, s.view(inv))
	}
	return views, nil
}

// generateInvitationToken generates a cryptographically random,
// URL-safe invitation token.
func generateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
