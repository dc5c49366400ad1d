package handlers

import (
	"net/http"
	"strings"

	"github.com/example/learning-platform/internal/platform/api"
	"github.com/example/learning-platform/internal/platform/auth"
	"github.com/example/learning-platform/internal/platform/httpserver"
	"github.com/example/learning-platform/internal/progress"
)

type playlistCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// SetPlaylistCompletion handles
// PUT /v1/playlists/{playlist_id}/videos/{video_id}/completion.
func SetPlaylistCompletion(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		playlistID, ok := pathID(w, r, rid, "playlist_id")
		if !ok {
			return
		}
		videoID, ok := pathID(w, r, rid, "video_id")
		if !ok {
			return
		}

		var req playlistCompletionRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if !validateRequest(w, rid, req) {
			return
		}

		rec, err := svc.MarkPlaylistVideoCompletion(r.Context(), uid, videoID, playlistID, *req.Completed)
		if err != nil {
			writeProgressError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, rec)
	}
}
