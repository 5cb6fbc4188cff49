// Package httpapi exposes the Will Counter operations over HTTP: a
// gorilla/mux router, a JSON response envelope, and thin handlers that
// translate between the wire format and the store. Business branching
// lives in the store layer, not here.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/willcounter/internal/logging"
	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

const apiVersion = "1.0.0"

// fallbackEmail is used when the token carries no email claim.
const fallbackEmail = "unknown@domain.com"

// Store is the subset of the resilient store the handlers use.
type Store interface {
	HealthCheck(ctx context.Context) bool
	GetUser(ctx context.Context, auth0ID string) (*models.User, error)
	EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string) bool
	GetTodayCount(ctx context.Context, userID string) *models.WillCount
	IncrementCount(ctx context.Context, userID string) *models.WillCount
	ResetToday(ctx context.Context, userID string) *models.WillCount
	GetStatistics(ctx context.Context, userID string, days int) []models.WillCount
}

// Middleware wraps a handler, typically with token verification.
type Middleware func(http.Handler) http.Handler

type Server struct {
	store  Store
	auth   Middleware
	logger logging.Logger
}

func NewServer(store Store, auth Middleware, logger logging.Logger) *Server {
	return &Server{
		store:  store,
		auth:   auth,
		logger: logger.With("module", "httpapi"),
	}
}

// Routes builds the router. Registration order matters for the /api/users
// subtree: /me must come before the {auth0Id} wildcard.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	users := r.PathPrefix("/api/users").Subrouter()
	users.Handle("", s.auth(http.HandlerFunc(s.handleCreateUser))).Methods(http.MethodPost)
	users.Handle("/me", s.auth(http.HandlerFunc(s.handleCurrentUser))).Methods(http.MethodGet)
	users.HandleFunc("/{auth0Id}", s.handleGetUser).Methods(http.MethodGet)
	users.HandleFunc("/{userId}/login", s.handleLogin).Methods(http.MethodPost)

	counts := r.PathPrefix("/api/will-counts").Subrouter()
	counts.Handle("/users/ensure", s.auth(http.HandlerFunc(s.handleEnsureUser))).Methods(http.MethodPost)
	counts.Handle("/today", s.auth(http.HandlerFunc(s.handleToday))).Methods(http.MethodGet)
	counts.Handle("/increment", s.auth(http.HandlerFunc(s.handleIncrement))).Methods(http.MethodPost)
	counts.Handle("/reset", s.auth(http.HandlerFunc(s.handleReset))).Methods(http.MethodPost)
	counts.Handle("/statistics", s.auth(http.HandlerFunc(s.handleStatistics))).Methods(http.MethodGet)

	return r
}
