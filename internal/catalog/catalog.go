// Package catalog provides read-only access to video, subject and playlist
// metadata. Progress tracking consumes it for duration lookups, playlist
// membership checks and display enrichment; the admin CRUD that maintains
// these tables lives outside this service.
package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: not found")

// Video is the metadata needed by progress tracking: the authoritative
// duration plus the display fields used in activity feeds.
type Video struct {
	ID              int64  `json:"id"`
	SubjectID       int64  `json:"subject_id"`
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Store defines the metadata lookups consumed by progress tracking.
type Store interface {
	// GetVideo returns a video by id, or ErrNotFound.
	GetVideo(ctx context.Context, videoID int64) (Video, error)
	// GetSubject returns a subject by id, or ErrNotFound.
	GetSubject(ctx context.Context, subjectID int64) (Subject, error)
	// VideoInPlaylist reports whether the video belongs to the playlist.
	VideoInPlaylist(ctx context.Context, videoID, playlistID int64) (bool, error)
}
