package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_Lookups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.PutSubject(Subject{ID: 1, Name: "Algebra"})
	s.PutVideo(Video{ID: 100, SubjectID: 1, Title: "Linear equations", DurationSeconds: 200})

	v, err := s.GetVideo(ctx, 100)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if v.Title != "Linear equations" || v.DurationSeconds != 200 {
		t.Fatalf("unexpected video: %+v", v)
	}

	sub, err := s.GetSubject(ctx, 1)
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	if sub.Name != "Algebra" {
		t.Fatalf("unexpected subject: %+v", sub)
	}

	if _, err := s.GetVideo(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSubject(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_PlaylistMembership(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.PutVideo(Video{ID: 100, SubjectID: 1, Title: "Linear equations"})
	s.AddToPlaylist(7, 100)

	ok, err := s.VideoInPlaylist(ctx, 100, 7)
	if err != nil || !ok {
		t.Fatalf("expected membership, got ok=%v err=%v", ok, err)
	}
	ok, err = s.VideoInPlaylist(ctx, 100, 8)
	if err != nil || ok {
		t.Fatalf("expected no membership, got ok=%v err=%v", ok, err)
	}
}

// TestCatalogStoreInterface ensures both implementations satisfy the interface.
func TestCatalogStoreInterface(t *testing.T) {
	var _ Store = (*MemoryStore)(nil)
	var _ Store = (*PostgresStore)(nil)
}
