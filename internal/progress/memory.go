package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/learning-platform/internal/catalog"
)

// MemoryStore keeps watch progress in memory. It mirrors the Postgres
// semantics, including foreign-key behaviour (unknown users and videos are
// rejected with ErrInvalidReference), and backs the unit tests and local
// development mode.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[string]map[int64]WatchProgress // user -> video -> record
	counters map[string]UserCounters
	meta     catalog.Store

	now func() time.Time
}

func NewMemoryStore(meta catalog.Store) *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string]map[int64]WatchProgress),
		counters: make(map[string]UserCounters),
		meta:     meta,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddUser registers a user row so progress writes and counter refreshes for
// it succeed, mirroring the users foreign key.
func (s *MemoryStore) AddUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[userID]; !ok {
		s.counters[userID] = UserCounters{}
	}
}

// UserCounters returns the denormalized counters as last refreshed.
func (s *MemoryStore) UserCounters(userID string) (UserCounters, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counters[userID]
	return c, ok
}

func (s *MemoryStore) Upsert(ctx context.Context, userID string, videoID int64, u ProgressUpdate) (WatchProgress, error) {
	video, err := s.meta.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return WatchProgress{}, fmt.Errorf("progress: upsert: %w", ErrInvalidReference)
		}
		return WatchProgress{}, fmt.Errorf("progress: upsert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counters[userID]; !ok {
		return WatchProgress{}, fmt.Errorf("progress: upsert: %w", ErrInvalidReference)
	}

	now := s.now()
	rec, exists := s.rows[userID][videoID]
	if !exists {
		rec = WatchProgress{
			UserID:         userID,
			VideoID:        videoID,
			FirstWatchedAt: now,
		}
		rec.TotalDurationSeconds = video.DurationSeconds
	}

	rec.WatchTimeSeconds = u.WatchTimeSeconds
	if u.TotalDurationSeconds != nil {
		rec.TotalDurationSeconds = *u.TotalDurationSeconds
	}
	if u.LastPositionSeconds != nil {
		rec.LastPositionSeconds = *u.LastPositionSeconds
	}
	if u.BookmarkNotes != nil {
		rec.BookmarkNotes = *u.BookmarkNotes
	}

	rec.ProgressPercentage = percentFor(rec.WatchTimeSeconds, rec.TotalDurationSeconds)
	// Completion is sticky: a lower percentage never reverts it.
	if rec.ProgressPercentage >= CompletionThresholdPercent {
		rec.IsCompleted = true
	}
	if rec.IsCompleted && rec.CompletedAt == nil {
		ts := now
		rec.CompletedAt = &ts
	}
	rec.LastWatchedAt = now

	s.put(userID, videoID, rec)
	return rec, nil
}

func (s *MemoryStore) SetCompletion(ctx context.Context, userID string, videoID int64, completed bool) (WatchProgress, error) {
	video, err := s.meta.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return WatchProgress{}, fmt.Errorf("progress: set completion: %w", ErrInvalidReference)
		}
		return WatchProgress{}, fmt.Errorf("progress: set completion: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counters[userID]; !ok {
		return WatchProgress{}, fmt.Errorf("progress: set completion: %w", ErrInvalidReference)
	}

	now := s.now()
	rec, exists := s.rows[userID][videoID]
	if !exists {
		rec = WatchProgress{
			UserID:         userID,
			VideoID:        videoID,
			FirstWatchedAt: now,
		}
	}
	if rec.TotalDurationSeconds == 0 {
		rec.TotalDurationSeconds = video.DurationSeconds
	}

	if completed {
		rec.WatchTimeSeconds = rec.TotalDurationSeconds
		rec.ProgressPercentage = 100
		rec.IsCompleted = true
		if rec.CompletedAt == nil {
			ts := now
			rec.CompletedAt = &ts
		}
	} else {
		rec.WatchTimeSeconds = 0
		rec.ProgressPercentage = 0
		// IsCompleted and CompletedAt stay as they are.
	}
	rec.LastWatchedAt = now

	s.put(userID, videoID, rec)
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, userID string, videoID int64) (WatchProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[userID][videoID]
	return rec, ok, nil
}

func (s *MemoryStore) OverallStats(_ context.Context, userID string) (OverallStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out OverallStats
	var pctSum float64
	for _, rec := range s.rows[userID] {
		out.TotalVideosWatched++
		out.TotalWatchTimeSeconds += int64(rec.WatchTimeSeconds)
		pctSum += rec.ProgressPercentage
		if rec.IsCompleted {
			out.VideosCompleted++
		}
	}
	if out.TotalVideosWatched > 0 {
		out.AverageProgress = pctSum / float64(out.TotalVideosWatched)
	}
	return out, nil
}

func (s *MemoryStore) SubjectStats(ctx context.Context, userID string) ([]SubjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySubject := map[int64]*SubjectStats{}
	pctSums := map[int64]float64{}
	for videoID, rec := range s.rows[userID] {
		video, err := s.meta.GetVideo(ctx, videoID)
		if err != nil {
			continue
		}
		st := bySubject[video.SubjectID]
		if st == nil {
			name := ""
			if sub, err := s.meta.GetSubject(ctx, video.SubjectID); err == nil {
				name = sub.Name
			}
			st = &SubjectStats{SubjectID: video.SubjectID, SubjectName: name}
			bySubject[video.SubjectID] = st
		}
		st.VideosWatched++
		pctSums[video.SubjectID] += rec.ProgressPercentage
		if rec.IsCompleted {
			st.VideosCompleted++
		}
	}

	out := make([]SubjectStats, 0, len(bySubject))
	for id, st := range bySubject {
		st.AverageProgress = pctSums[id] / float64(st.VideosWatched)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectName < out[j].SubjectName })
	return out, nil
}

func (s *MemoryStore) RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]WatchProgress, 0, len(s.rows[userID]))
	for _, rec := range s.rows[userID] {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].LastWatchedAt.Equal(recs[j].LastWatchedAt) {
			return recs[i].LastWatchedAt.After(recs[j].LastWatchedAt)
		}
		return recs[i].VideoID > recs[j].VideoID
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := []ActivityItem{}
	for _, rec := range recs {
		video, err := s.meta.GetVideo(ctx, rec.VideoID)
		if err != nil {
			continue
		}
		subjectName := ""
		if sub, err := s.meta.GetSubject(ctx, video.SubjectID); err == nil {
			subjectName = sub.Name
		}
		out = append(out, ActivityItem{
			VideoID:             rec.VideoID,
			Title:               video.Title,
			ThumbnailURL:        video.ThumbnailURL,
			SubjectName:         subjectName,
			WatchTimeSeconds:    rec.WatchTimeSeconds,
			ProgressPercentage:  rec.ProgressPercentage,
			IsCompleted:         rec.IsCompleted,
			LastPositionSeconds: rec.LastPositionSeconds,
			LastWatchedAt:       rec.LastWatchedAt,
		})
	}
	return out, nil
}

func (s *MemoryStore) RefreshUserCounters(_ context.Context, userID string) (UserCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counters[userID]; !ok {
		return UserCounters{}, fmt.Errorf("progress: refresh counters: %w", ErrInvalidReference)
	}

	var c UserCounters
	for _, rec := range s.rows[userID] {
		c.TotalWatchTimeSeconds += int64(rec.WatchTimeSeconds)
		if rec.IsCompleted {
			c.VideosCompleted++
		}
	}
	s.counters[userID] = c
	return c, nil
}

func (s *MemoryStore) put(userID string, videoID int64, rec WatchProgress) {
	if s.rows[userID] == nil {
		s.rows[userID] = make(map[int64]WatchProgress)
	}
	s.rows[userID][videoID] = rec
}
