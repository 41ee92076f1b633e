package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookProvider_SendDefaultPayload(t *testing.T) {
	t.Parallel()

	var received webhookPayload
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewWebhookProvider(WebhookConfig{
		Name:    "ops",
		URL:     server.URL,
		Headers: map[string]string{"X-Auth": "tok"},
	})

	event := RotationEvent{
		Type:          EventTypeRotated,
		Service:       "skylinkvpn",
		Protocol:      "vmess",
		Descriptor:    "vmess://abc",
		CanonicalHost: "skylinkvpn-123.us-central1.run.app",
		Timestamp:     time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC),
		Metadata:      map[string]string{"rotation_count": "7"},
	}
	require.NoError(t, p.Send(context.Background(), event))

	assert.Equal(t, "webhook:ops", p.Name())
	assert.Equal(t, "tok", header.Get("X-Auth"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "rotated", received.Event)
	assert.Equal(t, "vmess://abc", received.Descriptor)
	assert.Equal(t, "2026-08-29T06:00:00Z", received.Timestamp)
	assert.Equal(t, "7", received.Metadata["rotation_count"])
}

func TestWebhookProvider_SendTemplatePayload(t *testing.T) {
	t.Parallel()

	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		body = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewWebhookProvider(WebhookConfig{
		URL:             server.URL,
		PayloadTemplate: `{{.Service}} -> {{.Descriptor}}`,
	})

	event := RotationEvent{Type: EventTypeRotated, Service: "skylinkvpn", Descriptor: "trojan://x"}
	require.NoError(t, p.Send(context.Background(), event))
	assert.Equal(t, "skylinkvpn -> trojan://x", body)
}

func TestWebhookProvider_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewWebhookProvider(WebhookConfig{URL: server.URL})
	err := p.Send(context.Background(), RotationEvent{Type: EventTypeRotated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookProvider_Validate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.Error(t, NewWebhookProvider(WebhookConfig{}).Validate(ctx))
	require.Error(t, NewWebhookProvider(WebhookConfig{URL: "not a url"}).Validate(ctx))
	assert.NoError(t, NewWebhookProvider(WebhookConfig{URL: "https://example.com/hook"}).Validate(ctx))
}
