package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeValidation      = "validation_error"
	ErrCodeStateConflict   = "invalid_state"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeUnauthenticated = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"
)

const internalErrorMessage = "An unexpected error occurred"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}

type stateDetails struct {
	RentalID      string              `json:"rental_id,omitempty"`
	Action        string              `json:"action"`
	CurrentStatus domain.RentalStatus `json:"current_status"`
}

type unavailableDetails struct {
	Conflicts         []domain.Conflict `json:"conflicts"`
	NextAvailableDate *domain.Date      `json:"next_available_date,omitempty"`
}

// writeServiceError maps a service error onto the error taxonomy. Anything
// outside it is logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *domain.ValidationError
		stateErr       *domain.StateConflictError
		unavailableErr *domain.UnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) > 0 {
			writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeValidation, validationErr.Message, validationErr.Fields)
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationErr.Message)
	case errors.As(err, &stateErr):
		writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeStateConflict, stateErr.Error(), stateDetails{
			RentalID:      stateErr.RentalID,
			Action:        stateErr.Action,
			CurrentStatus: stateErr.Current,
		})
	case errors.As(err, &unavailableErr):
		conflicts := unavailableErr.Conflicts
		if conflicts == nil {
			conflicts = []domain.Conflict{}
		}
		writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeUnavailable, unavailableErr.Error(), unavailableDetails{
			Conflicts:         conflicts,
			NextAvailableDate: unavailableErr.NextAvailableDate,
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, domain.ErrStateConflict):
		writeError(w, http.StatusBadRequest, ErrCodeStateConflict, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusBadRequest, ErrCodeUnavailable, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "You are not allowed to perform this action")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, internalErrorMessage)
	}
}
