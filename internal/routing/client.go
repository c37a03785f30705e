// Package routing talks to the travel-time provider (a Distance Matrix style
// API) and the route optimizer.
package routing

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

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
)

const (
	defaultMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	defaultTimeout   = 15 * time.Second
)

// ErrNoRoute is returned when the provider answers but has no route between
// the two addresses.
var ErrNoRoute = errors.New("routing: no route found")

// StatusError is returned for a non-2xx response from either endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("routing: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client fetches travel durations and optimized stop sequences.
type Client struct {
	httpClient *http.Client
	apiKey     string

	matrixURL    string
	optimizerURL string
}

// NewClient creates a routing client. An empty matrixURL uses the Google
// Distance Matrix endpoint. optimizerURL may be empty, in which case
// Optimize always fails.
func NewClient(matrixURL, apiKey, optimizerURL string) *Client {
	if matrixURL == "" {
		matrixURL = defaultMatrixURL
	}
	return &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		apiKey:       apiKey,
		matrixURL:    matrixURL,
		optimizerURL: optimizerURL,
	}
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// TravelDuration returns the driving time from one address to another.
func (c *Client) TravelDuration(ctx context.Context, from, to string) (domain.TravelEstimate, error) {
	if from == "" || to == "" {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: both addresses are required")
	}

	params := url.Values{
		"origins":      {from},
		"destinations": {to},
		"mode":         {"driving"},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.matrixURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: creating request: %w", err)
	}

	var body matrixResponse
	if err := c.do(req, &body); err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: %w", err)
	}

	if body.Status != "" && body.Status != "OK" {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: provider status %s", body.Status)
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: %w", ErrNoRoute)
	}
	el := body.Rows[0].Elements[0]
	if el.Status != "" && el.Status != "OK" {
		return domain.TravelEstimate{}, fmt.Errorf("routing.Client.TravelDuration: %s: %w", el.Status, ErrNoRoute)
	}
	return domain.TravelEstimate{Seconds: el.Duration.Value, Text: el.Duration.Text}, nil
}

type optimizeRequest struct {
	Points []domain.RoutePoint `json:"points"`
	Start  *domain.Coordinate  `json:"start,omitempty"`
}

type optimizeResponse struct {
	Points []domain.RoutePoint `json:"points"`
}

// Optimize sends the stops' coordinates to the route optimizer and returns
// the stop IDs in the suggested visiting order. start is the tour's custom
// starting point, if any.
func (c *Client) Optimize(ctx context.Context, points []domain.RoutePoint, start *domain.Coordinate) ([]uuid.UUID, error) {
	if c.optimizerURL == "" {
		return nil, fmt.Errorf("routing.Client.Optimize: OPTIMIZER_URL is not configured")
	}

	payload, err := json.Marshal(optimizeRequest{Points: points, Start: start})
	if err != nil {
		return nil, fmt.Errorf("routing.Client.Optimize: marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.optimizerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("routing.Client.Optimize: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var body optimizeResponse
	if err := c.do(req, &body); err != nil {
		return nil, fmt.Errorf("routing.Client.Optimize: %w", err)
	}
	if len(body.Points) != len(points) {
		return nil, fmt.Errorf("routing.Client.Optimize: optimizer returned %d points for %d stops", len(body.Points), len(points))
	}

	ids := make([]uuid.UUID, len(body.Points))
	for i, p := range body.Points {
		ids[i] = p.ID
	}
	return ids, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
