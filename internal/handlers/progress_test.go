package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/learning-platform/internal/catalog"
	"github.com/example/learning-platform/internal/platform/auth"
	"github.com/example/learning-platform/internal/progress"
)

func newTestCore(t *testing.T) (*progress.Service, *progress.StatsAggregator) {
	t.Helper()
	meta := catalog.NewMemoryStore()
	meta.PutSubject(catalog.Subject{ID: 1, Name: "Algebra"})
	meta.PutVideo(catalog.Video{ID: 100, SubjectID: 1, Title: "Linear equations", DurationSeconds: 200})
	meta.AddToPlaylist(7, 100)

	st := progress.NewMemoryStore(meta)
	st.AddUser("user-a")

	log := zap.NewNop()
	agg := progress.NewStatsAggregator(st, log)
	return progress.NewService(st, meta, agg, nil, log), agg
}

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func TestReportProgress(t *testing.T) {
	svc, _ := newTestCore(t)
	handler := ReportProgress(svc)

	req := setupReq(http.MethodPost, "/v1/progress",
		`{"video_id":100,"watch_time_seconds":50,"last_position_seconds":48}`, nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec progress.WatchProgress
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ProgressPercentage != 25 || rec.IsCompleted {
		t.Fatalf("expected 25%% incomplete, got %+v", rec)
	}
	if rec.LastPositionSeconds != 48 {
		t.Fatalf("expected last position 48, got %d", rec.LastPositionSeconds)
	}
}

func TestReportProgress_Unauthorized(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	ReportProgress(svc).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/progress",
		`{"video_id":100,"watch_time_seconds":50}`, nil, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestReportProgress_InvalidJSON(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	ReportProgress(svc).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/progress", `{not json`, nil, "user-a"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestReportProgress_NegativeWatchTime(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	ReportProgress(svc).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/progress",
		`{"video_id":100,"watch_time_seconds":-5}`, nil, "user-a"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestReportProgress_UnknownVideo(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	ReportProgress(svc).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/progress",
		`{"video_id":999,"watch_time_seconds":5}`, nil, "user-a"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGetProgress_NeverStarted(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	GetProgress(svc).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/progress/100", "",
		map[string]string{"video_id": "100"}, "user-a"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec progress.WatchProgress
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.WatchTimeSeconds != 0 || rec.IsCompleted {
		t.Fatalf("expected zero default, got %+v", rec)
	}
}

func TestGetProgress_BadID(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	GetProgress(svc).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/progress/abc", "",
		map[string]string{"video_id": "abc"}, "user-a"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSetPlaylistCompletion(t *testing.T) {
	svc, _ := newTestCore(t)
	handler := SetPlaylistCompletion(svc)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, setupReq(http.MethodPut, "/v1/playlists/7/videos/100/completion",
		`{"completed":true}`, map[string]string{"playlist_id": "7", "video_id": "100"}, "user-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec progress.WatchProgress
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rec.IsCompleted || rec.ProgressPercentage != 100 {
		t.Fatalf("expected full credit, got %+v", rec)
	}
}

func TestSetPlaylistCompletion_NotInPlaylist(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	SetPlaylistCompletion(svc).ServeHTTP(rr, setupReq(http.MethodPut, "/v1/playlists/9/videos/100/completion",
		`{"completed":true}`, map[string]string{"playlist_id": "9", "video_id": "100"}, "user-a"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSetPlaylistCompletion_MissingFlag(t *testing.T) {
	svc, _ := newTestCore(t)
	rr := httptest.NewRecorder()
	SetPlaylistCompletion(svc).ServeHTTP(rr, setupReq(http.MethodPut, "/v1/playlists/7/videos/100/completion",
		`{}`, map[string]string{"playlist_id": "7", "video_id": "100"}, "user-a"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGetLearningStats_Handler(t *testing.T) {
	svc, agg := newTestCore(t)

	// Seed one completed video through the normal report path.
	req := setupReq(http.MethodPost, "/v1/progress",
		`{"video_id":100,"watch_time_seconds":190}`, nil, "user-a")
	rr := httptest.NewRecorder()
	ReportProgress(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("seed report failed: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	GetLearningStats(agg).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/stats", "", nil, "user-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var stats progress.LearningStats
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Overall.TotalVideosWatched != 1 || stats.Overall.VideosCompleted != 1 {
		t.Fatalf("unexpected overall stats: %+v", stats.Overall)
	}
	if len(stats.BySubject) != 1 || stats.BySubject[0].SubjectName != "Algebra" {
		t.Fatalf("unexpected by_subject: %+v", stats.BySubject)
	}
	if len(stats.RecentActivity) != 1 || stats.RecentActivity[0].VideoID != 100 {
		t.Fatalf("unexpected recent_activity: %+v", stats.RecentActivity)
	}
}

func TestGetLearningStats_Unauthorized(t *testing.T) {
	_, agg := newTestCore(t)
	rr := httptest.NewRecorder()
	GetLearningStats(agg).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/stats", "", nil, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
