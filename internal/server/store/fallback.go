package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

const dateLayout = "2006-01-02"

func todayUTC() string {
	return time.Now().UTC().Format(dateLayout)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Fallback is the process-local substitute used while the remote store is
// unreachable. It is not a cache: nothing is synchronized back, and its
// contents are lost on restart. Counters are keyed by (userID, date),
// users by Auth0 subject.
//
// A single mutex guards both maps; read-modify-write sequences (increment,
// reset) hold it end to end so concurrent increments on the same key are
// never lost.
type Fallback struct {
	mu     sync.Mutex
	counts map[string]*models.WillCount
	users  map[string]*models.User
}

func NewFallback() *Fallback {
	return &Fallback{
		counts: make(map[string]*models.WillCount),
		users:  make(map[string]*models.User),
	}
}

func countKey(userID string) string {
	return userID + "-" + todayUTC()
}

// todayLocked returns the resident record for today, creating a zero
// record if absent. Caller must hold f.mu.
func (f *Fallback) todayLocked(userID string) *models.WillCount {
	key := countKey(userID)
	if rec, ok := f.counts[key]; ok {
		return rec
	}
	now := nowRFC3339()
	rec := &models.WillCount{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       todayUTC(),
		Count:      0,
		Timestamps: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.counts[key] = rec
	return rec
}

// TodayCount returns (lazily creating) today's record for the user.
func (f *Fallback) TodayCount(userID string) *models.WillCount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneCount(f.todayLocked(userID))
}

// IncrementToday appends one timestamp and bumps the count, holding the
// lock for the whole sequence.
func (f *Fallback) IncrementToday(userID string) *models.WillCount {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.todayLocked(userID)
	now := nowRFC3339()
	rec.Count++
	rec.Timestamps = append(rec.Timestamps, now)
	rec.UpdatedAt = now
	return cloneCount(rec)
}

// ResetToday clears today's record back to zero.
func (f *Fallback) ResetToday(userID string) *models.WillCount {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.todayLocked(userID)
	rec.Count = 0
	rec.Timestamps = []string{}
	rec.UpdatedAt = nowRFC3339()
	return cloneCount(rec)
}

// User returns (lazily creating) the resident user for the subject, with
// default preferences.
func (f *Fallback) User(auth0ID, email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[auth0ID]; ok {
		return cloneUser(u)
	}
	u := &models.User{
		ID:          uuid.NewString(),
		Auth0ID:     auth0ID,
		Email:       email,
		CreatedAt:   nowRFC3339(),
		Preferences: models.DefaultPreferences(),
	}
	f.users[auth0ID] = u
	return cloneUser(u)
}

// Clones keep callers from mutating resident records outside the lock.

func cloneCount(rec *models.WillCount) *models.WillCount {
	c := *rec
	c.Timestamps = append([]string{}, rec.Timestamps...)
	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LastLogin != nil {
		ll := *u.LastLogin
		c.LastLogin = &ll
	}
	c.Preferences = make(map[string]any, len(u.Preferences))
	for k, v := range u.Preferences {
		c.Preferences[k] = v
	}
	return &c
}
