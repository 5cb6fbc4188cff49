// Package models defines the records stored in the backing store.
package models

// DefaultPreferences are assigned to users created outside the remote
// store (fallback records) and mirror the application defaults.
func DefaultPreferences() map[string]any {
	return map[string]any{
		"soundEnabled":        true,
		"notificationEnabled": true,
		"theme":               "light",
	}
}

// User is an application user keyed by the Auth0 subject identifier.
// Timestamps travel as RFC 3339 strings, matching the wire format of the
// backing store.
type User struct {
	ID          string         `json:"id"`
	Auth0ID     string         `json:"auth0_id"`
	Email       string         `json:"email"`
	CreatedAt   string         `json:"created_at"`
	LastLogin   *string        `json:"last_login,omitempty"`
	Preferences map[string]any `json:"preferences"`
}
