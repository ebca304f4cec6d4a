package server

import (
	"context"
	"net/http"
	"time"

	"github.com/maxjung/messagely-be/internal/auth"
	"github.com/maxjung/messagely-be/internal/config"
	"github.com/maxjung/messagely-be/internal/http/handlers"
	"github.com/maxjung/messagely-be/internal/middleware"
	"github.com/maxjung/messagely-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL())
	handler := Routes(store, tokens)

	handler = middleware.CORS(cfg.CORSOrigins, middleware.Logging(handler))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Routes builds the API mux: open register/login/health routes plus the
// claim-guarded user and message routes.
func Routes(store storage.Store, tokens *auth.TokenManager) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens).Register(mux)

	guard := func(next http.Handler) http.Handler {
		return middleware.RequireClaim(tokens, next)
	}
	handlers.NewUserHandler(store, store).Register(mux, guard)
	handlers.NewMessageHandler(store, store).Register(mux, guard)

	return mux
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
