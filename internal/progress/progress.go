// Package progress owns per-user video watch progress and the statistics
// derived from it. A single record exists per (user, video) pair; records are
// created and mutated exclusively through an atomic upsert so completion can
// never be observed half-applied or reverted.
package progress

import (
	"errors"
	"time"
)

// CompletionThresholdPercent is the watched percentage at which a video
// becomes permanently completed for a user. Shared by every code path that
// derives the completion flag.
const CompletionThresholdPercent = 90.0

// recentActivityLimit caps the recent-activity section of learning stats.
const recentActivityLimit = 10

var (
	// ErrInvalidArgument marks malformed or out-of-range caller input.
	ErrInvalidArgument = errors.New("progress: invalid argument")
	// ErrInvalidReference marks an unknown user, video or playlist reference.
	ErrInvalidReference = errors.New("progress: unknown reference")
)

// WatchProgress is one user's progress on one video.
type WatchProgress struct {
	UserID               string     `json:"user_id"`
	VideoID              int64      `json:"video_id"`
	WatchTimeSeconds     int        `json:"watch_time_seconds"`
	TotalDurationSeconds int        `json:"total_duration_seconds"`
	ProgressPercentage   float64    `json:"progress_percentage"`
	IsCompleted          bool       `json:"is_completed"`
	LastPositionSeconds  int        `json:"last_position_seconds"`
	BookmarkNotes        string     `json:"bookmark_notes,omitempty"`
	FirstWatchedAt       time.Time  `json:"first_watched_at"`
	LastWatchedAt        time.Time  `json:"last_watched_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// ProgressUpdate carries one progress report. Nil optional fields keep
// whatever the stored record already has.
type ProgressUpdate struct {
	WatchTimeSeconds     int
	TotalDurationSeconds *int
	LastPositionSeconds  *int
	BookmarkNotes        *string
}

// UserCounters are the denormalized totals kept on the user row.
type UserCounters struct {
	TotalWatchTimeSeconds int64 `json:"total_watch_time_seconds"`
	VideosCompleted       int   `json:"videos_completed"`
}

// OverallStats summarizes all of a user's progress rows.
type OverallStats struct {
	TotalVideosWatched    int     `json:"total_videos_watched"`
	VideosCompleted       int     `json:"videos_completed"`
	TotalWatchTimeSeconds int64   `json:"total_watch_time_seconds"`
	AverageProgress       float64 `json:"average_progress"`
}

// SubjectStats is the per-subject slice of a user's progress.
type SubjectStats struct {
	SubjectID       int64   `json:"subject_id"`
	SubjectName     string  `json:"subject_name"`
	VideosWatched   int     `json:"videos_watched"`
	VideosCompleted int     `json:"videos_completed"`
	AverageProgress float64 `json:"average_progress"`
}

// ActivityItem is one recently-touched progress row enriched with video and
// subject metadata for display.
type ActivityItem struct {
	VideoID             int64     `json:"video_id"`
	Title               string    `json:"title"`
	ThumbnailURL        string    `json:"thumbnail_url,omitempty"`
	SubjectName         string    `json:"subject_name"`
	WatchTimeSeconds    int       `json:"watch_time_seconds"`
	ProgressPercentage  float64   `json:"progress_percentage"`
	IsCompleted         bool      `json:"is_completed"`
	LastPositionSeconds int       `json:"last_position_seconds"`
	LastWatchedAt       time.Time `json:"last_watched_at"`
}

// LearningStats is the full statistics payload. The three sections are
// computed independently and carry no cross-consistency guarantee.
type LearningStats struct {
	Overall        OverallStats   `json:"overall"`
	BySubject      []SubjectStats `json:"by_subject"`
	RecentActivity []ActivityItem `json:"recent_activity"`
}

// percentFor derives the watched percentage. A zero or unknown duration
// yields 0 rather than a division error.
func percentFor(watchSeconds, durationSeconds int) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return float64(watchSeconds) * 100 / float64(durationSeconds)
}
