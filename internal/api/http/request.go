package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/validator"
)

const maxJSONBody = 1 << 20

// decoder reads and validates JSON request bodies.
type decoder struct {
	validator *validator.Validator
}

// decode parses the body into dst and validates its struct tags. Malformed
// JSON and failed validation both come back as *domain.ValidationError.
func (d decoder) decode(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("request body is required")
		case errors.As(err, &maxErr):
			return domain.NewValidationError("request body is too large")
		default:
			return domain.NewValidationError("invalid request body: %v", err)
		}
	}
	if d.validator == nil {
		return nil
	}
	return d.validator.Validate(dst)
}

// rentalActionRequest is the body of every single-rental action.
type rentalActionRequest struct {
	RentalID string `json:"rental_id" validate:"required"`
}

func queryDate(r *http.Request, name string) (domain.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return domain.Date{}, &domain.ValidationError{
			Message: fmt.Sprintf("%s is required", name),
			Fields:  map[string]string{name: "is required"},
		}
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, &domain.ValidationError{
			Message: err.Error(),
			Fields:  map[string]string{name: "must be a date in yyyy-mm-dd format"},
		}
	}
	return d, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("%s must be an integer", name)
	}
	return n, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("%s must be an integer", name)
	}
	return n, nil
}

func requireQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("%s is required", name),
			Fields:  map[string]string{name: "is required"},
		}
	}
	return v, nil
}
