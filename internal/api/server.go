// Package api provides the REST API server for PageWatch.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mchen/pagewatch/internal/tracker"
)

// Server holds the dependencies for the API.
type Server struct {
	userStore *UserStore
	store     *tracker.Store
	scanner   *tracker.Scanner
	jwtSecret []byte
	logger    *slog.Logger
}

// NewServer creates a new API Server instance.
func NewServer(users *UserStore, store *tracker.Store, scanner *tracker.Scanner, jwtSecret string) *Server {
	return &Server{
		userStore: users,
		store:     store,
		scanner:   scanner,
		jwtSecret: []byte(jwtSecret),
		logger:    slog.Default(),
	}
}

// Routes returns the configured http.Handler for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Auth routes (public)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister())
	mux.HandleFunc("POST /api/auth/login", s.handleLogin())

	// Protected routes
	mux.Handle("GET /api/targets", s.requireAuth(http.HandlerFunc(s.handleListTargets())))
	mux.Handle("POST /api/targets", s.requireAuth(http.HandlerFunc(s.handleAddTarget())))
	mux.Handle("DELETE /api/targets/{id}", s.requireAuth(http.HandlerFunc(s.handleRemoveTarget())))
	mux.Handle("GET /api/targets/{id}/timeline", s.requireAuth(http.HandlerFunc(s.handleTimeline())))
	mux.Handle("GET /api/targets/{id}/compare", s.requireAuth(http.HandlerFunc(s.handleCompare())))
	mux.Handle("GET /api/targets/{id}/badge.png", s.requireAuth(http.HandlerFunc(s.handleBadge())))
	mux.Handle("POST /api/scan", s.requireAuth(http.HandlerFunc(s.handleScan())))

	return mux
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
