package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/willcounter/internal/server/auth"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"message": "Will Counter API",
			"version": apiVersion,
		},
		Message: "Welcome to Will Counter API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.store.HealthCheck(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    map[string]string{"status": "degraded"},
			Error:   "backing store unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		Message: "API is running and healthy",
	})
}

// identityEmail returns the token's email claim, or a placeholder when
// the claim is absent.
func identityEmail(id *auth.Identity) string {
	if id.Email == "" {
		return fallbackEmail
	}
	return id.Email
}

type createUserRequest struct {
	Auth0ID string `json:"auth0Id"`
	Email   string `json:"email"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Auth0ID == "" {
		writeError(w, http.StatusBadRequest, "auth0Id is required")
		return
	}
	if req.Auth0ID != id.Subject {
		writeError(w, http.StatusForbidden, "auth0Id does not match authenticated user")
		return
	}

	if existing, err := s.store.GetUser(r.Context(), req.Auth0ID); err == nil {
		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Data:    toUserResponse(existing),
			Message: "User already exists",
		})
		return
	}

	email := req.Email
	if email == "" {
		email = identityEmail(id)
	}

	user, err := s.store.EnsureUser(r.Context(), req.Auth0ID, email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    toUserResponse(user),
		Message: "User created successfully",
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.store.GetUser(r.Context(), id.Subject)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: toUserResponse(user)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	auth0ID := mux.Vars(r)["auth0Id"]
	if auth0ID == "" {
		writeError(w, http.StatusBadRequest, "auth0Id is required")
		return
	}

	user, err := s.store.GetUser(r.Context(), auth0ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: toUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if !s.store.UpdateLastLogin(r.Context(), userID) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Last login updated"})
}

func (s *Server) handleEnsureUser(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.store.EnsureUser(r.Context(), id.Subject, identityEmail(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to ensure user")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"user_id": user.ID},
		Message: "User ensured successfully",
	})
}

// ensureCaller resolves the authenticated caller into a store user id.
// The counter endpoints all need the user row to exist first.
func (s *Server) ensureCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}

	user, err := s.store.EnsureUser(r.Context(), id.Subject, identityEmail(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to ensure user")
		return "", false
	}
	return user.ID, true
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ensureCaller(w, r)
	if !ok {
		return
	}

	rec := s.store.GetTodayCount(r.Context(), userID)
	writeJSON(w, http.StatusOK, toWillCountResponse(rec))
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ensureCaller(w, r)
	if !ok {
		return
	}

	rec := s.store.IncrementCount(r.Context(), userID)
	writeJSON(w, http.StatusOK, toWillCountResponse(rec))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ensureCaller(w, r)
	if !ok {
		return
	}

	rec := s.store.ResetToday(r.Context(), userID)
	writeJSON(w, http.StatusOK, toWillCountResponse(rec))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ensureCaller(w, r)
	if !ok {
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			days = n
		}
	}
	if days < 1 {
		days = 1
	}

	counts := s.store.GetStatistics(r.Context(), userID, days)

	today := time.Now().UTC().Format("2006-01-02")
	total := 0
	todayCount := 0
	daily := make([]DailyStat, 0, len(counts))
	for _, rec := range counts {
		total += rec.Count
		if rec.Date == today {
			todayCount = rec.Count
		}
		daily = append(daily, DailyStat{
			Date:     rec.Date,
			Count:    rec.Count,
			Sessions: len(rec.Timestamps),
		})
	}

	var weeklyAverage float64
	if len(counts) > 0 {
		weeklyAverage = float64(total) / float64(min(days, 7))
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: StatisticsResponse{
			TotalCount:    total,
			TodayCount:    todayCount,
			WeeklyAverage: weeklyAverage,
			DailyCounts:   daily,
		},
	})
}
