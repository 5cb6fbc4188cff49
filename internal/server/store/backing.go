// Package store provides the resilient data-access layer for users and
// daily counters. Every logical operation first talks to the remote
// backing store and degrades to a process-local fallback when the remote
// side is unreachable, so callers never hard-fail on an outage.
package store

import (
	"context"

	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

// Backing is the remote store behind the resilient layer. One production
// implementation speaks PostgREST (Supabase REST), another talks to the
// database directly; tests supply fakes.
//
// Error contract: lookups return common.ErrorNotFound when the record is
// legitimately absent, creates return common.ErrorConflict when another
// writer got there first, and everything else wraps
// common.ErrorRemoteUnavailable or common.ErrorMalformedResponse.
type Backing interface {
	// Ping probes reachability. A "not found" style response still counts
	// as reachable; only transport-level failures return an error.
	Ping(ctx context.Context) error

	GetUserByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error)
	CreateUser(ctx context.Context, auth0ID, email string) (*models.User, error)
	// UpdateLastLogin stamps the user's last_login and reports whether a
	// record matched.
	UpdateLastLogin(ctx context.Context, userID, lastLogin string) (bool, error)

	GetCount(ctx context.Context, userID, date string) (*models.WillCount, error)
	CreateCount(ctx context.Context, rec *models.WillCount) (*models.WillCount, error)
	// IncrementCount is the atomic server-side increment (the RPC path).
	IncrementCount(ctx context.Context, userID string) (*models.WillCount, error)
	// PatchCount conditionally rewrites the record with the given id (the
	// manual increment/reset path).
	PatchCount(ctx context.Context, id string, count int, timestamps []string, updatedAt string) (*models.WillCount, error)
	// ListCounts returns records with date >= since, newest date first.
	ListCounts(ctx context.Context, userID, since string) ([]models.WillCount, error)
}
