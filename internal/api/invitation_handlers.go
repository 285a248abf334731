package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stepweaver/cashflow-server/internal/http/response"
	"github.com/stepweaver/cashflow-server/internal/service"
)

// Public invitation handlers

// handleGetInvitationDetails returns public invitation details by token.
// GET /api/v1/invitations/token/{token}.
func (s *Server) handleGetInvitationDetails(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		response.BadRequest(w, "Invitation token is required", s.logger)
		return
	}

	details, err := s.inviteService.GetInvitationDetails(r.Context(), token)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, details, s.logger)
}

// handleAcceptInvitation accepts an invitation and creates the account.
// POST /api/v1/invitations/accept.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req service.AcceptInvitationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.inviteService.AcceptInvitation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	sanitized := user.Sanitized()
	response.Created(w, sanitized, s.logger)
}

// Admin invitation handlers

// handleListInvitations returns all invitations, newest first.
// GET /api/v1/invitations.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	views, err := s.inviteService.ListInvitations(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, views, s.logger)
}

// handleCreateInvitation invites an email address.
// POST /api/v1/invitations.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "invalid or expired token", s.logger)
		return
	}

	var req service.CreateInvitationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	view, err := s.inviteService.CreateInvitation(r.Context(), claims.Subject, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, view, s.logger)
}

// handleCancelInvitation withdraws a pending invitation.
// DELETE /api/v1/invitations/{id}.
func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Invitation ID is required", s.logger)
		return
	}

	view, err := s.inviteService.CancelInvitation(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, view, s.logger)
}

// handleResendInvitation rotates the token of a pending invitation and
// re-delivers the email.
// POST /api/v1/invitations/{id}/resend.
func (s *Server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Invitation ID is required", s.logger)
		return
	}

	view, err := s.inviteService.ResendInvitation(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, view, s.logger)
}
