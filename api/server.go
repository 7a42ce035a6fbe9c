// Package api exposes the chatbot over HTTP: health endpoints, a chat
// endpoint, and session management. The owner identity comes from the
// X-User-Email header; authenticating that header is the reverse proxy's
// job, not this package's.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edvisor-fi/edvisor/internal/engine"
	"github.com/edvisor-fi/edvisor/internal/log"
	"github.com/edvisor-fi/edvisor/internal/session"
)

const shutdownTimeout = 10 * time.Second

// ownerHeader carries the caller's identity, set by the fronting proxy.
const ownerHeader = "X-User-Email"

// Responder answers one chat turn, satisfied by *engine.Engine.
type Responder interface {
	Respond(ctx context.Context, owner, chatID, message string) (engine.Turn, error)
}

// Sessions is the conversation persistence the API needs, satisfied by
// *session.Store.
type Sessions interface {
	CreateSession(owner string) (string, error)
	History(ctx context.Context, owner, chatID string) ([]session.Message, error)
	DeleteSession(ctx context.Context, owner, chatID string) error
	ListSessions(ctx context.Context, owner string) ([]session.SessionInfo, error)
}

// PassageCounter reports how many passages the index holds, satisfied by
// *index.Index. Zero passages means the service answers blind, which
// readiness should surface.
type PassageCounter interface {
	Count() int
}

// Config configures the HTTP server.
type Config struct {
	Addr string
}

// Server is the HTTP front of the chatbot.
type Server struct {
	httpServer *http.Server
	logger     log.Logger
}

// NewServer wires the routes and middleware.
func NewServer(cfg Config, responder Responder, sessions Sessions, passages PassageCounter, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady(passages))
	mux.HandleFunc("POST /api/chat", s.handleChat(responder))
	mux.HandleFunc("GET /api/sessions", s.handleListSessions(sessions))
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession(sessions))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession(sessions))
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleHistory(sessions))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           chain(mux, withRecovery(logger), withLogging(logger)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // generation can be slow
		IdleTimeout:       2 * time.Minute,
	}

	return s
}

// Handler returns the fully wired handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// owner extracts the caller identity; empty means the request is
// unattributable and gets a 400.
func owner(r *http.Request) string {
	return r.Header.Get(ownerHeader)
}
