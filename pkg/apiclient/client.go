// Package apiclient is a typed client for the RentShare HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rentshare-backend/internal/domain"
)

const maxResponseBody = 8 << 20

// TokenSource hands out bearer tokens. *security.SessionManager satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"error"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Rental is a rental as returned by the API, with its display phase.
type Rental struct {
	domain.Rental
	Phase string `json:"phase"`
}

type Agreement struct {
	RentalID         string     `json:"rental_id"`
	AgreementText    string     `json:"agreement_text"`
	AcceptedByOwner  bool       `json:"accepted_by_owner"`
	AcceptedByRenter bool       `json:"accepted_by_renter"`
	Signed           bool       `json:"signed"`
	SignedAt         *time.Time `json:"signed_at,omitempty"`
}

type Config struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: httpClient,
	}
}

// CheckAvailability reports whether itemID is free for [start, end).
func (c *Client) CheckAvailability(ctx context.Context, itemID string, start, end domain.Date, excludeRentalID string) (*domain.AvailabilityResult, error) {
	q := url.Values{}
	q.Set("item_id", itemID)
	q.Set("start_date", start.String())
	q.Set("end_date", end.String())
	if excludeRentalID != "" {
		q.Set("exclude_rental_id", excludeRentalID)
	}
	var out domain.AvailabilityResult
	if err := c.do(ctx, http.MethodGet, "/api/check-availability?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRental(ctx context.Context, req domain.NewRentalRequest) (*Rental, error) {
	var out Rental
	if err := c.do(ctx, http.MethodPost, "/api/rentals", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRental(ctx context.Context, rentalID string) (*Rental, error) {
	var out Rental
	if err := c.do(ctx, http.MethodGet, "/api/rentals/"+url.PathEscape(rentalID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmPickup(ctx context.Context, rentalID string) (*Rental, error) {
	return c.transition(ctx, "/api/confirm-pickup", map[string]string{"rental_id": rentalID})
}

func (c *Client) InitiateReturn(ctx context.Context, rentalID string) (*Rental, error) {
	return c.transition(ctx, "/api/initiate-return", map[string]string{"rental_id": rentalID})
}

func (c *Client) ConfirmReturn(ctx context.Context, rentalID string, in domain.ReturnConfirmation) (*Rental, error) {
	body := struct {
		RentalID string `json:"rental_id"`
		domain.ReturnConfirmation
	}{RentalID: rentalID, ReturnConfirmation: in}
	return c.transition(ctx, "/api/confirm-return", body)
}

func (c *Client) CancelRental(ctx context.Context, rentalID, reason string) (*Rental, error) {
	return c.transition(ctx, "/api/cancel-rental", map[string]string{"rental_id": rentalID, "reason": reason})
}

func (c *Client) GenerateAgreement(ctx context.Context, rentalID string) (*Agreement, error) {
	var out Agreement
	if err := c.do(ctx, http.MethodPost, "/api/generate-agreement", map[string]string{"rental_id": rentalID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcceptAgreement(ctx context.Context, rentalID string) (*Agreement, error) {
	var out Agreement
	if err := c.do(ctx, http.MethodPost, "/api/accept-agreement", map[string]string{"rental_id": rentalID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReview(ctx context.Context, in domain.ReviewInput) (*domain.Review, error) {
	var out domain.Review
	if err := c.do(ctx, http.MethodPost, "/api/reviews", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewStats returns the rating summary for a user (reviewee) or an item.
func (c *Client) ReviewStats(ctx context.Context, userID, itemID string) (*domain.ReviewStats, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if itemID != "" {
		q.Set("item_id", itemID)
	}
	var out domain.ReviewStats
	if err := c.do(ctx, http.MethodGet, "/api/reviews/stats?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) transition(ctx context.Context, path string, body any) (*Rental, error) {
	var out Rental
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends the request with the current token. A 401 forces one token
// refresh and a single retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh access token: %w", err)
		}
		resp, err = c.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}
	}
	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
