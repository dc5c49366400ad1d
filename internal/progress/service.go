package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/learning-platform/internal/catalog"
	"github.com/example/learning-platform/internal/events"
)

// counterRefreshTimeout bounds the detached fallback refresh so it can never
// outlive a request by much or pile up goroutines.
const counterRefreshTimeout = 5 * time.Second

// Service is the write-side entry point for watch progress. It validates
// input, delegates to the atomic store upsert and triggers the best-effort
// counter refresh on completion.
type Service struct {
	store   Store
	catalog catalog.Store
	stats   *StatsAggregator
	events  *events.Publisher
	log     *zap.Logger
}

func NewService(store Store, cat catalog.Store, stats *StatsAggregator, pub *events.Publisher, log *zap.Logger) *Service {
	return &Service{store: store, catalog: cat, stats: stats, events: pub, log: log}
}

// ReportProgress applies one client progress report and returns the stored
// record. Completion is derived inside the store upsert; when the resulting
// record is completed the denormalized user counters are refreshed
// best-effort, without ever failing the report itself.
func (s *Service) ReportProgress(ctx context.Context, userID string, videoID int64, u ProgressUpdate) (WatchProgress, error) {
	if err := validateKey(userID, videoID); err != nil {
		return WatchProgress{}, err
	}
	if u.WatchTimeSeconds < 0 {
		return WatchProgress{}, fmt.Errorf("watch_time_seconds must be >= 0: %w", ErrInvalidArgument)
	}
	if u.TotalDurationSeconds != nil && *u.TotalDurationSeconds < 0 {
		return WatchProgress{}, fmt.Errorf("total_duration_seconds must be >= 0: %w", ErrInvalidArgument)
	}
	if u.LastPositionSeconds != nil && *u.LastPositionSeconds < 0 {
		return WatchProgress{}, fmt.Errorf("last_position_seconds must be >= 0: %w", ErrInvalidArgument)
	}

	rec, err := s.store.Upsert(ctx, userID, videoID, u)
	if err != nil {
		return WatchProgress{}, err
	}

	if rec.IsCompleted {
		s.refreshCountersAsync(userID, videoID)
	}
	return rec, nil
}

// GetProgress returns the stored record, or a zero-value default when the
// user has not started the video. Absence is not an error.
func (s *Service) GetProgress(ctx context.Context, userID string, videoID int64) (WatchProgress, error) {
	if err := validateKey(userID, videoID); err != nil {
		return WatchProgress{}, err
	}
	rec, ok, err := s.store.Get(ctx, userID, videoID)
	if err != nil {
		return WatchProgress{}, err
	}
	if !ok {
		return WatchProgress{UserID: userID, VideoID: videoID}, nil
	}
	return rec, nil
}

// MarkPlaylistVideoCompletion toggles completion from the playlist view:
// full credit when completed, a watch-time reset when not. The video must
// belong to the playlist.
func (s *Service) MarkPlaylistVideoCompletion(ctx context.Context, userID string, videoID, playlistID int64, completed bool) (WatchProgress, error) {
	if err := validateKey(userID, videoID); err != nil {
		return WatchProgress{}, err
	}
	if playlistID <= 0 {
		return WatchProgress{}, fmt.Errorf("playlist id is required: %w", ErrInvalidArgument)
	}

	ok, err := s.catalog.VideoInPlaylist(ctx, videoID, playlistID)
	if err != nil {
		return WatchProgress{}, fmt.Errorf("playlist membership check: %w", err)
	}
	if !ok {
		return WatchProgress{}, fmt.Errorf("video %d is not in playlist %d: %w", videoID, playlistID, ErrInvalidReference)
	}

	rec, err := s.store.SetCompletion(ctx, userID, videoID, completed)
	if err != nil {
		return WatchProgress{}, err
	}

	if rec.IsCompleted {
		s.refreshCountersAsync(userID, videoID)
	}
	return rec, nil
}

// refreshCountersAsync triggers the denormalized counter refresh without
// blocking or failing the progress report. With NATS available the event is
// handed to the worker; otherwise the refresh runs in a detached goroutine.
func (s *Service) refreshCountersAsync(userID string, videoID int64) {
	if s.events.Enabled() {
		s.events.PublishCompletion(userID, videoID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), counterRefreshTimeout)
		defer cancel()
		if _, err := s.stats.RefreshUserCounters(ctx, userID); err != nil {
			s.log.Warn("counter refresh failed",
				zap.String("user_id", userID),
				zap.Int64("video_id", videoID),
				zap.Error(err))
		}
	}()
}

func validateKey(userID string, videoID int64) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required: %w", ErrInvalidArgument)
	}
	if videoID <= 0 {
		return fmt.Errorf("video id is required: %w", ErrInvalidArgument)
	}
	return nil
}

// IsInvalidArgument reports whether err is a caller-input error.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsInvalidReference reports whether err is a dangling-reference error.
func IsInvalidReference(err error) bool { return errors.Is(err, ErrInvalidReference) }
