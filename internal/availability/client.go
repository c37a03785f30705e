// Package availability reads listing showing calendars from the availability
// service.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkordes/showing-tours/internal/domain"
)

const defaultTimeout = 10 * time.Second

// StatusError is returned when the availability service answers with a
// non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("availability: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client queries GET {baseURL}/listings/{listingID}/slots.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates an availability client. apiKey may be empty.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("AVAILABILITY_URL is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}, nil
}

// GetSlots returns the listing's calendar entries inside window, or every
// entry when window is nil. An empty calendar is an empty, non-nil slice.
func (c *Client) GetSlots(ctx context.Context, listingID string, window *domain.DayWindow) ([]domain.Slot, error) {
	if listingID == "" {
		return nil, fmt.Errorf("availability.Client.GetSlots: listing id is required")
	}

	u := fmt.Sprintf("%s/listings/%s/slots", c.baseURL, url.PathEscape(listingID))
	if window != nil {
		params := url.Values{
			"start": {window.Start.UTC().Format(time.RFC3339)},
			"end":   {window.End.UTC().Format(time.RFC3339)},
		}
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("availability.Client.GetSlots: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability.Client.GetSlots: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown listing: nothing is managed for it.
		return []domain.Slot{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}

	var slots []domain.Slot
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return nil, fmt.Errorf("availability.Client.GetSlots: decoding response: %w", err)
	}
	if slots == nil {
		slots = []domain.Slot{}
	}
	return slots, nil
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
