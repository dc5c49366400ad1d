package progress

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/learning-platform/internal/catalog"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	meta := catalog.NewMemoryStore()
	meta.PutSubject(catalog.Subject{ID: 1, Name: "Algebra"})
	meta.PutVideo(catalog.Video{ID: 100, SubjectID: 1, Title: "Linear equations", DurationSeconds: 200})
	meta.PutVideo(catalog.Video{ID: 101, SubjectID: 1, Title: "Quadratics", DurationSeconds: 300})
	meta.AddToPlaylist(7, 100)

	st := NewMemoryStore(meta)
	st.AddUser("u1")

	log := zap.NewNop()
	agg := NewStatsAggregator(st, log)
	// No publisher: the service falls back to direct best-effort refreshes.
	svc := NewService(st, meta, agg, nil, log)
	return svc, st
}

func TestReportProgress_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		userID  string
		videoID int64
		update  ProgressUpdate
	}{
		{"empty user", "", 100, ProgressUpdate{WatchTimeSeconds: 10}},
		{"zero video", "u1", 0, ProgressUpdate{WatchTimeSeconds: 10}},
		{"negative watch time", "u1", 100, ProgressUpdate{WatchTimeSeconds: -1}},
		{"negative duration", "u1", 100, ProgressUpdate{WatchTimeSeconds: 10, TotalDurationSeconds: intPtr(-5)}},
		{"negative position", "u1", 100, ProgressUpdate{WatchTimeSeconds: 10, LastPositionSeconds: intPtr(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ReportProgress(ctx, tc.userID, tc.videoID, tc.update); !IsInvalidArgument(err) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

// TestReportProgress_WatchRewatchScenario walks a video through partial
// progress, completion and a rewind.
func TestReportProgress_WatchRewatchScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ReportProgress(ctx, "u1", 100, ProgressUpdate{WatchTimeSeconds: 50})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rec.ProgressPercentage != 25 || rec.IsCompleted {
		t.Fatalf("after 50/200 expected 25%% incomplete, got %.2f%% completed=%v",
			rec.ProgressPercentage, rec.IsCompleted)
	}

	rec, err = svc.ReportProgress(ctx, "u1", 100, ProgressUpdate{WatchTimeSeconds: 190})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rec.ProgressPercentage != 95 || !rec.IsCompleted || rec.CompletedAt == nil {
		t.Fatalf("after 190/200 expected completed at 95%%, got %+v", rec)
	}
	completedAt := *rec.CompletedAt

	rec, err = svc.ReportProgress(ctx, "u1", 100, ProgressUpdate{WatchTimeSeconds: 10})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rec.WatchTimeSeconds != 10 || rec.ProgressPercentage != 5 {
		t.Fatalf("rewind must update watch time and percentage, got %+v", rec)
	}
	if !rec.IsCompleted || rec.CompletedAt == nil || !rec.CompletedAt.Equal(completedAt) {
		t.Fatal("rewind must not revert completion")
	}
}

func TestReportProgress_RefreshesCountersOnCompletion(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ReportProgress(ctx, "u1", 100, ProgressUpdate{WatchTimeSeconds: 190}); err != nil {
		t.Fatalf("report: %v", err)
	}

	// The fallback refresh runs in a detached goroutine; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if c, ok := st.UserCounters("u1"); ok && c.VideosCompleted == 1 && c.TotalWatchTimeSeconds == 190 {
			return
		}
		if time.Now().After(deadline) {
			c, _ := st.UserCounters("u1")
			t.Fatalf("counters not refreshed after completion: %+v", c)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetProgress_ZeroDefault(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.GetProgress(context.Background(), "u1", 101)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.WatchTimeSeconds != 0 || rec.ProgressPercentage != 0 || rec.IsCompleted || rec.LastPositionSeconds != 0 {
		t.Fatalf("expected zero-value default, got %+v", rec)
	}
	if rec.UserID != "u1" || rec.VideoID != 101 {
		t.Fatalf("default must carry the requested key, got %+v", rec)
	}
}

func TestMarkPlaylistVideoCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Video 101 is not in playlist 7.
	if _, err := svc.MarkPlaylistVideoCompletion(ctx, "u1", 101, 7, true); !IsInvalidReference(err) {
		t.Fatalf("expected ErrInvalidReference for non-member video, got %v", err)
	}

	rec, err := svc.MarkPlaylistVideoCompletion(ctx, "u1", 100, 7, true)
	if err != nil {
		t.Fatalf("mark completion: %v", err)
	}
	if !rec.IsCompleted || rec.ProgressPercentage != 100 || rec.WatchTimeSeconds != 200 {
		t.Fatalf("expected full credit, got %+v", rec)
	}

	rec, err = svc.MarkPlaylistVideoCompletion(ctx, "u1", 100, 7, false)
	if err != nil {
		t.Fatalf("mark incomplete: %v", err)
	}
	if rec.WatchTimeSeconds != 0 || rec.ProgressPercentage != 0 {
		t.Fatalf("expected reset, got %+v", rec)
	}
	if !rec.IsCompleted {
		t.Fatal("completion flag must stay sticky after unmarking")
	}
}
