package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/stepweaver/cashflow-server/internal/http/response"
	"github.com/stepweaver/cashflow-server/internal/service"
)

// handleMintToken exchanges an identity assertion for a scoped token.
// POST /api/v1/tokens.
func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req service.MintTokenRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.MintToken(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}
