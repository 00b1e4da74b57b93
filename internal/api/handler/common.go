package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pasacoin/pasanaku-server/internal/domain"
	"github.com/pasacoin/pasanaku-server/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// handleError converts domain errors to HTTP errors. Validation errors map
// to 400, conflicts with the group's current state to 409, and transient
// storage failures to 503 so clients know a retry is safe.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAmountMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrNotOpen),
		errors.Is(err, domain.ErrNotActive),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrGroupFull),
		errors.Is(err, domain.ErrUnknownParticipant),
		errors.Is(err, domain.ErrAlreadyContributed),
		errors.Is(err, domain.ErrNotRecipient),
		errors.Is(err, domain.ErrCycleIncomplete),
		errors.Is(err, domain.ErrNoRecipientAssigned):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransient):
		respondError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationError writes a JSON validation error response.
func respondValidationError(w http.ResponseWriter, field, value, message string) {
	respondJSON(w, http.StatusBadRequest, &validation.ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
