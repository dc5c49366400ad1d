package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/learning-platform/internal/platform/api"
	"github.com/example/learning-platform/internal/platform/auth"
	"github.com/example/learning-platform/internal/platform/httpserver"
	"github.com/example/learning-platform/internal/progress"
)

type reportProgressRequest struct {
	VideoID              int64   `json:"video_id" validate:"required,gt=0"`
	WatchTimeSeconds     int     `json:"watch_time_seconds" validate:"gte=0"`
	TotalDurationSeconds *int    `json:"total_duration_seconds" validate:"omitempty,gte=0"`
	LastPositionSeconds  *int    `json:"last_position_seconds" validate:"omitempty,gte=0"`
	BookmarkNotes        *string `json:"bookmark_notes"`
}

// ReportProgress handles POST /v1/progress.
func ReportProgress(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		var req reportProgressRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if !validateRequest(w, rid, req) {
			return
		}

		rec, err := svc.ReportProgress(r.Context(), uid, req.VideoID, progress.ProgressUpdate{
			WatchTimeSeconds:     req.WatchTimeSeconds,
			TotalDurationSeconds: req.TotalDurationSeconds,
			LastPositionSeconds:  req.LastPositionSeconds,
			BookmarkNotes:        req.BookmarkNotes,
		})
		if err != nil {
			writeProgressError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, rec)
	}
}

// GetProgress handles GET /v1/progress/{video_id}. A video the user never
// started yields a zero-value record, not a 404.
func GetProgress(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		videoID, ok := pathID(w, r, rid, "video_id")
		if !ok {
			return
		}

		rec, err := svc.GetProgress(r.Context(), uid, videoID)
		if err != nil {
			writeProgressError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, rec)
	}
}

// pathID parses a positive integer URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, rid, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "INVALID_ID", name+" must be a positive integer", rid, nil)
		return 0, false
	}
	return id, true
}
