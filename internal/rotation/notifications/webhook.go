package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"
)

// WebhookConfig holds configuration for generic webhook notifications.
type WebhookConfig struct {
	// Name is a human-readable name for this webhook.
	Name string

	// URL is the webhook endpoint URL.
	URL string

	// Method is the HTTP method to use (default: POST).
	Method string

	// Headers are additional HTTP headers to include.
	Headers map[string]string

	// Events specifies which rotation events trigger notifications.
	// If empty, all events are sent.
	Events []string

	// PayloadTemplate is a Go template for the request body.
	// If empty, a default JSON payload is used.
	PayloadTemplate string

	// Timeout for the HTTP request.
	Timeout time.Duration
}

// WebhookProvider sends rotation notifications via HTTP webhooks.
// Delivery is single-shot: no retries, matching the rotation loop's
// log-and-continue policy.
type WebhookProvider struct {
	config   WebhookConfig
	client   *http.Client
	template *template.Template
}

// webhookPayload is the default JSON body.
type webhookPayload struct {
	Event         string            `json:"event"`
	Service       string            `json:"service"`
	Protocol      string            `json:"protocol"`
	Descriptor    string            `json:"descriptor"`
	CanonicalHost string            `json:"canonical_host"`
	Timestamp     string            `json:"timestamp"`
	Error         string            `json:"error,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewWebhookProvider creates a new webhook notification provider.
func NewWebhookProvider(config WebhookConfig) *WebhookProvider {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	provider := &WebhookProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}

	if config.PayloadTemplate != "" {
		if tmpl, err := template.New("payload").Parse(config.PayloadTemplate); err == nil {
			provider.template = tmpl
		}
	}

	return provider
}

// Name returns the provider name.
func (p *WebhookProvider) Name() string {
	if p.config.Name != "" {
		return "webhook:" + p.config.Name
	}
	return "webhook"
}

// SupportsEvent returns true if this provider handles the given event type.
func (p *WebhookProvider) SupportsEvent(eventType EventType) bool {
	if len(p.config.Events) == 0 {
		return true
	}

	eventStr := string(eventType)
	for _, e := range p.config.Events {
		if strings.EqualFold(e, eventStr) {
			return true
		}
	}
	return false
}

// Validate checks if the provider configuration is valid.
func (p *WebhookProvider) Validate(ctx context.Context) error {
	if p.config.URL == "" {
		return fmt.Errorf("URL is required")
	}

	parsed, err := url.Parse(p.config.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", p.config.URL)
	}

	return nil
}

// Send delivers the event with a single bounded HTTP request.
func (p *WebhookProvider) Send(ctx context.Context, event RotationEvent) error {
	body, err := p.buildBody(event)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, p.config.Method, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// buildBody renders the payload template, or the default JSON body.
func (p *WebhookProvider) buildBody(event RotationEvent) ([]byte, error) {
	if p.template != nil {
		var buf bytes.Buffer
		if err := p.template.Execute(&buf, event); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	payload := webhookPayload{
		Event:         string(event.Type),
		Service:       event.Service,
		Protocol:      event.Protocol,
		Descriptor:    event.Descriptor,
		CanonicalHost: event.CanonicalHost,
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339),
		Metadata:      event.Metadata,
	}
	if event.Error != nil {
		payload.Error = event.Error.Error()
	}

	return json.Marshal(payload)
}
