package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

// Response is the JSON envelope shared by all API endpoints.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserResponse is the camelCase wire form of a user record.
type UserResponse struct {
	ID          string         `json:"id"`
	Auth0ID     string         `json:"auth0Id"`
	Email       string         `json:"email"`
	CreatedAt   string         `json:"createdAt"`
	LastLogin   *string        `json:"lastLogin,omitempty"`
	Preferences map[string]any `json:"preferences"`
}

// WillCountResponse is the camelCase wire form of a daily counter record.
type WillCountResponse struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	Date       string   `json:"date"`
	Count      int      `json:"count"`
	Timestamps []string `json:"timestamps"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// StatisticsResponse aggregates counter records over a trailing window.
type StatisticsResponse struct {
	TotalCount    int         `json:"totalCount"`
	TodayCount    int         `json:"todayCount"`
	WeeklyAverage float64     `json:"weeklyAverage"`
	DailyCounts   []DailyStat `json:"dailyCounts"`
}

type DailyStat struct {
	Date     string `json:"date"`
	Count    int    `json:"count"`
	Sessions int    `json:"sessions"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Auth0ID:     u.Auth0ID,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
		Preferences: u.Preferences,
	}
}

func toWillCountResponse(rec *models.WillCount) WillCountResponse {
	ts := rec.Timestamps
	if ts == nil {
		ts = []string{}
	}
	return WillCountResponse{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Date:       rec.Date,
		Count:      rec.Count,
		Timestamps: ts,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}
