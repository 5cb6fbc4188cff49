package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallback_TodayCountIsStablePerDay(t *testing.T) {
	t.Parallel()

	f := NewFallback()
	first := f.TodayCount("user-1")
	second := f.TodayCount("user-1")
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, todayUTC(), first.Date)

	other := f.TodayCount("user-2")
	require.NotEqual(t, first.ID, other.ID)
}

func TestFallback_ReturnsCopies(t *testing.T) {
	t.Parallel()

	f := NewFallback()
	rec := f.IncrementToday("user-1")
	rec.Count = 99
	rec.Timestamps = append(rec.Timestamps, "tampered")

	fresh := f.TodayCount("user-1")
	require.Equal(t, 1, fresh.Count)
	require.Len(t, fresh.Timestamps, 1)
}

func TestFallback_UserDefaults(t *testing.T) {
	t.Parallel()

	f := NewFallback()
	u := f.User("auth0|abc", "abc@example.com")
	require.NotEmpty(t, u.ID)
	require.Equal(t, true, u.Preferences["soundEnabled"])
	require.Equal(t, true, u.Preferences["notificationEnabled"])
	require.Equal(t, "light", u.Preferences["theme"])
	require.Nil(t, u.LastLogin)

	// Mutating the returned map must not leak into the resident record.
	u.Preferences["theme"] = "dark"
	again := f.User("auth0|abc", "other@example.com")
	require.Equal(t, u.ID, again.ID)
	require.Equal(t, "light", again.Preferences["theme"])
	require.Equal(t, "abc@example.com", again.Email)
}
