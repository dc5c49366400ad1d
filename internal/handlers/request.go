// Package handlers exposes the REST surface for progress tracking and
// learning statistics. Handlers parse and validate requests, call the
// in-process core and shape responses; all domain rules live in
// internal/progress.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/example/learning-platform/internal/platform/api"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var validate = validator.New()

// decodeJSON reads up to maxRequestBodyBytes from r.Body and decodes JSON
// into dst. On failure it writes a 400 response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

// validateRequest runs struct-tag validation and writes a field-keyed 400
// response on failure.
func validateRequest(w http.ResponseWriter, rid string, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := map[string]any{}
		for _, fe := range verrs {
			details[fe.Field()] = "failed " + fe.Tag() + " validation"
		}
		api.BadRequest(w, "VALIDATION_FAILED", "Invalid request payload", rid, details)
		return false
	}
	api.BadRequest(w, "VALIDATION_FAILED", "Invalid request payload", rid, nil)
	return false
}
