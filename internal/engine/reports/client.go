package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/participium/civimap/internal/model"
)

const (
	maxRetries   = 3
	baseBackoff  = 500 * time.Millisecond
	maxBackoff   = 5 * time.Second
	jitterFactor = 0.5
)

// StatusError indicates the backend answered with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Participium REST backend.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a client for the given API base URL. The token is sent
// as a bearer token when non-empty; citizen map views work without one.
func NewClient(baseURL, token string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// FetchMapReports returns the reports to plot on the map, filtered server
// side to the given statuses. An empty filter asks for the public subset.
func (c *Client) FetchMapReports(ctx context.Context, statuses []string) ([]model.Report, error) {
	if len(statuses) == 0 {
		statuses = model.PublicMapStatuses
	}

	params := url.Values{}
	params.Set("status", strings.Join(statuses, ","))

	var reports []model.Report
	err := c.doJSON(ctx, "GET", "/api/reports?"+params.Encode(), nil, &reports)
	if err != nil {
		return nil, fmt.Errorf("fetching reports: %w", err)
	}
	return reports, nil
}

// SubmitReport creates a new report and returns the stored entity.
func (c *Client) SubmitReport(ctx context.Context, payload model.NewReport) (model.Report, error) {
	var created model.Report
	err := c.doJSON(ctx, "POST", "/api/reports", payload, &created)
	if err != nil {
		return model.Report{}, fmt.Errorf("submitting report: %w", err)
	}
	return created, nil
}

// doJSON performs a request with retry and exponential backoff on
// retryable statuses, decoding the response body into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding body: %w", err)
		}
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(float64(backoff) * jitterFactor * rand.Float64())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if se, ok := lastErr.(*StatusError); !ok || !se.retryable() {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
