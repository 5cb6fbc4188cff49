package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/willcounter/internal/common"
	"github.com/dmitrijs2005/willcounter/internal/logging"
	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

// Resilient wraps a Backing with the compensation strategies of the
// access layer: create-on-missing, conflict-then-reread, RPC-then-manual-
// patch, and finally the in-memory fallback. Remote failures are logged
// and absorbed; callers only ever see an error when the request itself is
// structurally invalid.
type Resilient struct {
	backing  Backing
	fallback *Fallback
	logger   logging.Logger
}

func New(backing Backing, logger logging.Logger) *Resilient {
	return &Resilient{
		backing:  backing,
		fallback: NewFallback(),
		logger:   logger.With("module", "store"),
	}
}

// HealthCheck reports whether the backing store is reachable. An empty
// store is still a healthy store.
func (s *Resilient) HealthCheck(ctx context.Context) bool {
	if err := s.backing.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "backing store probe failed", "error", err)
		return false
	}
	return true
}

// GetUser looks up a user by Auth0 subject. Unlike the other operations
// it propagates errors, because the caller needs to tell "legitimately
// not found" apart from "backing store error" before deciding to create.
func (s *Resilient) GetUser(ctx context.Context, auth0ID string) (*models.User, error) {
	if auth0ID == "" {
		return nil, common.ErrorNotFound
	}
	return s.backing.GetUserByAuth0ID(ctx, auth0ID)
}

// EnsureUser returns the user record for the subject, creating it on
// first sight. Read-first, then create, then conflict-triggered re-read;
// when every remote path fails the fallback user is returned. Repeated
// calls for the same subject never create two remote records.
func (s *Resilient) EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	if auth0ID == "" {
		return nil, errors.New("empty subject")
	}

	if user, err := s.backing.GetUserByAuth0ID(ctx, auth0ID); err == nil {
		return user, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "user lookup failed, attempting create", "error", err)
	}

	created, err := s.backing.CreateUser(ctx, auth0ID, email)
	if err == nil {
		return created, nil
	}

	if errors.Is(err, common.ErrorConflict) {
		// Another writer created the record between our read and create.
		if user, rerr := s.backing.GetUserByAuth0ID(ctx, auth0ID); rerr == nil {
			return user, nil
		}
	}

	s.logger.Warn(ctx, "user create failed, using fallback", "error", err)
	return s.fallback.User(auth0ID, email), nil
}

// UpdateLastLogin stamps the user's last_login with the current time and
// reports whether a record matched. Remote failures are absorbed and
// reported as "not confirmed".
func (s *Resilient) UpdateLastLogin(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	ok, err := s.backing.UpdateLastLogin(ctx, userID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Warn(ctx, "last-login update failed", "error", err)
		return false
	}
	return ok
}

// GetTodayCount returns today's counter record for the user, lazily
// creating a zero record remotely, or in the fallback when the remote
// store is down.
func (s *Resilient) GetTodayCount(ctx context.Context, userID string) *models.WillCount {
	date := todayUTC()

	rec, err := s.backing.GetCount(ctx, userID, date)
	if err == nil {
		return rec
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "count lookup failed", "error", err)
	}

	now := nowRFC3339()
	created, err := s.backing.CreateCount(ctx, &models.WillCount{
		UserID:     userID,
		Date:       date,
		Count:      0,
		Timestamps: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err == nil {
		return created
	}
	if errors.Is(err, common.ErrorConflict) {
		// Lost the race to another request creating today's record.
		if rec, rerr := s.backing.GetCount(ctx, userID, date); rerr == nil {
			return rec
		}
	}

	s.logger.Warn(ctx, "count create failed, using fallback", "error", err)
	return s.fallback.TodayCount(userID)
}

// IncrementCount adds one to today's counter. The atomic server-side
// increment is preferred; when it is unavailable the record is patched by
// id with an appended timestamp; when that also fails the fallback record
// is incremented. In every successful outcome count == len(timestamps).
func (s *Resilient) IncrementCount(ctx context.Context, userID string) *models.WillCount {
	if rec, err := s.backing.IncrementCount(ctx, userID); err == nil {
		return rec
	} else {
		s.logger.Warn(ctx, "increment rpc failed, patching manually", "error", err)
	}

	current := s.GetTodayCount(ctx, userID)
	now := nowRFC3339()
	timestamps := append(append([]string{}, current.Timestamps...), now)

	if rec, err := s.backing.PatchCount(ctx, current.ID, current.Count+1, timestamps, now); err == nil {
		return rec
	} else {
		s.logger.Warn(ctx, "manual increment failed, using fallback", "error", err)
	}

	return s.fallback.IncrementToday(userID)
}

// ResetToday zeroes today's counter, remotely when possible, otherwise in
// the fallback.
func (s *Resilient) ResetToday(ctx context.Context, userID string) *models.WillCount {
	current := s.GetTodayCount(ctx, userID)

	if rec, err := s.backing.PatchCount(ctx, current.ID, 0, []string{}, nowRFC3339()); err == nil {
		return rec
	} else {
		s.logger.Warn(ctx, "reset failed, using fallback", "error", err)
	}

	return s.fallback.ResetToday(userID)
}

// GetStatistics returns counter records from the last `days` days, newest
// first. On remote failure it returns an empty slice: callers treat that
// as "no history available", not as an outage signal.
func (s *Resilient) GetStatistics(ctx context.Context, userID string, days int) []models.WillCount {
	if days < 1 {
		days = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(dateLayout)

	list, err := s.backing.ListCounts(ctx, userID, since)
	if err != nil {
		s.logger.Warn(ctx, "history query failed", "error", err)
		return []models.WillCount{}
	}
	if list == nil {
		list = []models.WillCount{}
	}
	return list
}
