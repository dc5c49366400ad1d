package progress

import (
	"context"
)

// Store defines persistence for watch progress and its aggregates.
//
// Upsert and SetCompletion must be atomic per (user, video) key: concurrent
// calls may not produce duplicate rows, and the sticky completion rule
// (is_completed / completed_at never revert once set) must hold inside the
// same write that applies the rest of the record.
type Store interface {
	// Upsert applies one progress report and returns the resulting record.
	// A missing duration falls back to the stored one, then to the catalog
	// duration on first insert, then to zero.
	Upsert(ctx context.Context, userID string, videoID int64, u ProgressUpdate) (WatchProgress, error)

	// SetCompletion applies the playlist completion shortcut: full credit
	// (watch time = duration, 100%) when completed, a reset to zero when not.
	// Completion remains sticky either way.
	SetCompletion(ctx context.Context, userID string, videoID int64, completed bool) (WatchProgress, error)

	// Get returns the record and whether it exists. Absence is not an error.
	Get(ctx context.Context, userID string, videoID int64) (WatchProgress, bool, error)

	// OverallStats aggregates all progress rows for the user.
	OverallStats(ctx context.Context, userID string) (OverallStats, error)

	// SubjectStats groups the user's progress rows by the subject of the
	// watched video, ordered by subject name.
	SubjectStats(ctx context.Context, userID string) ([]SubjectStats, error)

	// RecentActivity returns up to limit rows ordered by last_watched_at
	// descending, enriched with video and subject metadata.
	RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityItem, error)

	// RefreshUserCounters recomputes the denormalized user counters from the
	// full progress set and writes them onto the user row. Recompute, never
	// increment, so retries and races stay self-correcting.
	RefreshUserCounters(ctx context.Context, userID string) (UserCounters, error)
}
