// Package api provides the HTTP API server and handlers for the cash flow application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stepweaver/cashflow-server/internal/ratelimit"
	"github.com/stepweaver/cashflow-server/internal/scope"
	"github.com/stepweaver/cashflow-server/internal/service"
	"github.com/stepweaver/cashflow-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         *store.Store
	authService   *service.AuthService
	inviteService *service.InviteService
	userService   *service.UserService
	tokenLimiter  *ratelimit.KeyedRateLimiter
	router        *chi.Mux
	logger        *slog.Logger
	corsOrigins   []string
}

// NewServer creates a new HTTP server with all routes configured.
// tokenLimiter throttles the public token and invitation endpoints per
// client IP and must be provided by the caller.
func NewServer(
	st *store.Store,
	authService *service.AuthService,
	inviteService *service.InviteService,
	userService *service.UserService,
	tokenLimiter *ratelimit.KeyedRateLimiter,
	corsOrigins []string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:         st,
		authService:   authService,
		inviteService: inviteService,
		userService:   userService,
		tokenLimiter:  tokenLimiter,
		router:        chi.NewRouter(),
		logger:        logger,
		corsOrigins:   corsOrigins,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Token minting (public, rate-limited).
		r.With(s.rateLimitByIP).Post("/tokens", s.handleMintToken)

		// Invitations.
		r.Route("/invitations", func(r chi.Router) {
			// Public endpoints for the accept flow (rate-limited).
			r.With(s.rateLimitByIP).Get("/token/{token}", s.handleGetInvitationDetails)
			r.With(s.rateLimitByIP).Post("/accept", s.handleAcceptInvitation)

			// Admin endpoints.
			r.With(s.requireScope(scope.ReadUsers)).Get("/", s.handleListInvitations)
			r.With(s.requireScope(scope.WriteUsers), s.rateLimitByIP).Post("/", s.handleCreateInvitation)
			r.With(s.requireScope(scope.WriteUsers), s.rateLimitByIP).Delete("/{id}", s.handleCancelInvitation)
			r.With(s.requireScope(scope.WriteUsers), s.rateLimitByIP).Post("/{id}/resend", s.handleResendInvitation)
		})

		// Users.
		r.Route("/users", func(r chi.Router) {
			r.With(s.requireScope(scope.ReadUsers)).Get("/", s.handleListUsers)
			r.With(s.requireScope(scope.AdminAccess), s.rateLimitByIP).Delete("/{id}", s.handleDeactivateUser)
		})
	})
}
