package catalog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory catalog used by tests and local development.
// It doubles as the fixture backing the in-memory progress store.
type MemoryStore struct {
	mu        sync.RWMutex
	videos    map[int64]Video
	subjects  map[int64]Subject
	playlists map[int64]map[int64]struct{} // playlist_id -> video ids
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:    make(map[int64]Video),
		subjects:  make(map[int64]Subject),
		playlists: make(map[int64]map[int64]struct{}),
	}
}

// PutSubject registers or replaces a subject.
func (s *MemoryStore) PutSubject(sub Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.ID] = sub
}

// PutVideo registers or replaces a video.
func (s *MemoryStore) PutVideo(v Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = v
}

// AddToPlaylist records playlist membership for a video.
func (s *MemoryStore) AddToPlaylist(playlistID, videoID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playlists[playlistID] == nil {
		s.playlists[playlistID] = make(map[int64]struct{})
	}
	s.playlists[playlistID][videoID] = struct{}{}
}

func (s *MemoryStore) GetVideo(_ context.Context, videoID int64) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	if !ok {
		return Video{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) GetSubject(_ context.Context, subjectID int64) (Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[subjectID]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return sub, nil
}

func (s *MemoryStore) VideoInPlaylist(_ context.Context, videoID, playlistID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.playlists[playlistID][videoID]
	return ok, nil
}
