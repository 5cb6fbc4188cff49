package models

// WillCount is the daily counter record. Exactly one record exists per
// (UserID, Date) pair; Date is a calendar day in UTC, "YYYY-MM-DD".
//
// Invariant: Count always equals len(Timestamps). Increment appends one
// timestamp and bumps Count; reset clears both.
type WillCount struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	Date       string   `json:"date"`
	Count      int      `json:"count"`
	Timestamps []string `json:"timestamps"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}
