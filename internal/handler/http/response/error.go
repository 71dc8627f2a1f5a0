package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/apperr"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses by their kind. Errors
// without a kind are logged and reported as a generic 500.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, "", validationErrs.ToMap())
		return
	}

	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		ValidationError(w, err.Error(), nil)
	case apperr.ErrConflict:
		Conflict(w, err.Error())
	case apperr.ErrNotFound:
		NotFound(w, err.Error())
	case apperr.ErrPermission:
		Forbidden(w, err.Error())
	case apperr.ErrCapacity:
		CapacityExceeded(w, err.Error())
	default:
		slog.Error("unhandled request error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// HandleDecodeError reports a malformed request body.
func HandleDecodeError(w http.ResponseWriter, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		BadRequest(w, "Request body is empty", nil)
	case errors.As(err, &typeErr):
		BadRequest(w, "Invalid value for field", map[string]string{typeErr.Field: "expected " + typeErr.Type.String()})
	case errors.As(err, &syntaxErr):
		BadRequest(w, "Malformed JSON", nil)
	default:
		BadRequest(w, "Invalid request body", nil)
	}
}
