package handlers

import (
	"net/http"

	"github.com/example/learning-platform/internal/platform/api"
	"github.com/example/learning-platform/internal/progress"
)

// writeProgressError maps core errors onto the shared error envelope.
// Invalid input and dangling references are the caller's fault; everything
// else is a storage failure and surfaces as a retryable 500.
func writeProgressError(w http.ResponseWriter, rid string, err error) {
	switch {
	case progress.IsInvalidArgument(err):
		api.BadRequest(w, "INVALID_ARGUMENT", err.Error(), rid, nil)
	case progress.IsInvalidReference(err):
		api.NotFound(w, "REFERENCE_NOT_FOUND", err.Error(), rid)
	default:
		api.Internal(w, rid)
	}
}
