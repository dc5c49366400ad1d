package handlers

import (
	"net/http"
	"strings"

	"github.com/example/learning-platform/internal/platform/api"
	"github.com/example/learning-platform/internal/platform/auth"
	"github.com/example/learning-platform/internal/platform/httpserver"
	"github.com/example/learning-platform/internal/progress"
)

// GetLearningStats handles GET /v1/stats.
func GetLearningStats(agg *progress.StatsAggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		stats, err := agg.GetLearningStats(r.Context(), uid)
		if err != nil {
			writeProgressError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, stats)
	}
}
