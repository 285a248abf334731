package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stepweaver/cashflow-server/internal/http/response"
)

// handleListUsers returns all accounts, newest first.
// GET /api/v1/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.ListUsers(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, users, s.logger)
}

// handleDeactivateUser disables an account.
// DELETE /api/v1/users/{id}.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "User ID is required", s.logger)
		return
	}

	user, err := s.userService.DeactivateUser(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}
