package hcloud

import (
	"log/slog"
	"time"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// RealClient implements Client using the Hetzner Cloud API.
type RealClient struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
	logger   *slog.Logger
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithLogger sets the logger used for cleanup progress and API retries.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *RealClient) {
		c.logger = l
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client:   hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("tradefleet", "")),
		timeouts: config.LoadTimeouts(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HCloudClient returns the underlying hcloud.Client for advanced operations.
func (c *RealClient) HCloudClient() *hcloud.Client {
	return c.client
}

// retryOpts returns the backoff settings for API calls on what.
func (c *RealClient) retryOpts(what string) []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.logger.Debug("retrying hcloud call", "resource", what, "attempt", attempt, "delay", delay, "error", err)
		}),
	}
}
