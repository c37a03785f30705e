package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkordes/showing-tours/internal/domain"
)

// Channel names accepted by the push gateway.
const (
	ChannelPush = "push"
	ChannelSMS  = "sms"
)

// PushMessage is the body POSTed to the push gateway.
type PushMessage struct {
	Channel string          `json:"channel"`
	To      string          `json:"to"`
	Body    string          `json:"body"`
	Routing *domain.Routing `json:"routing,omitempty"`
}

// WebhookPusher posts PushMessages to an HTTP push gateway.
type WebhookPusher struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// NewWebhookPusher creates a WebhookPusher for url.
func NewWebhookPusher(url, apiKey string) *WebhookPusher {
	return &WebhookPusher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		apiKey:     apiKey,
	}
}

// Send posts msg to the gateway.
func (p *WebhookPusher) Send(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("push gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
