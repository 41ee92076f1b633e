package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProbeConfig holds configuration for the post-deploy endpoint probe.
type ProbeConfig struct {
	// ExpectedStatusCodes are the HTTP status codes considered healthy.
	// The tunnel service answers plain GETs on its root with 200 or,
	// for some images, 404; both mean TLS terminated and the container
	// is serving.
	ExpectedStatusCodes []int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Attempts is how many times the probe retries a cold endpoint.
	Attempts int

	// Backoff is the wait between attempts.
	Backoff time.Duration
}

// DefaultProbeConfig returns the default probe configuration.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		ExpectedStatusCodes: []int{200, 204, 404},
		Timeout:             10 * time.Second,
		Attempts:            5,
		Backoff:             3 * time.Second,
	}
}

// HTTPClient is the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober verifies that a freshly deployed endpoint answers over HTTPS.
type Prober struct {
	config ProbeConfig
	client HTTPClient
}

// NewProber creates a prober with the given configuration.
func NewProber(config ProbeConfig) *Prober {
	return &Prober{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// SetClient sets a custom HTTP client for testing.
func (p *Prober) SetClient(client HTTPClient) {
	p.client = client
}

// Probe performs GET requests against the endpoint until one returns an
// expected status or the attempts are exhausted. Cloud Run cold starts
// make the first attempt unreliable, hence the retry loop.
func (p *Prober) Probe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("no endpoint to probe")
	}

	var lastErr error
	for attempt := 1; attempt <= p.config.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.Backoff):
			}
		}

		lastErr = p.probeOnce(ctx, endpoint)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("endpoint %s did not become healthy after %d attempts: %w",
		endpoint, p.config.Attempts, lastErr)
}

func (p *Prober) probeOnce(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Discard body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	for _, code := range p.config.ExpectedStatusCodes {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("unexpected status code %d", resp.StatusCode)
}
