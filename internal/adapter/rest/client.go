// Package rest is the thin client for the GamePulse backend REST API.
// It normalizes the backend's heterogeneous response envelopes and guards
// every call with a circuit breaker so a struggling backend fails fast
// instead of piling up in-flight polls.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the backend endpoint and client policy.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures is the consecutive-failure count that opens the circuit.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open before half-open probes.
	BreakerCooldown time.Duration
}

func (c *Config) withDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 15 * time.Second
	}
}

// Client issues read-only requests against the backend.
type Client struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

func NewClient(logger *slog.Logger, cfg Config) (*Client, error) {
	cfg.withDefaults()
	// url.Parse treats "localhost:3000" as an opaque URL with Scheme
	// "localhost", so a scheme check alone lets scheme-less endpoints through.
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("rest: invalid base url %q", cfg.BaseURL)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gamepulse-backend",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend circuit state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		logger:  logger,
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(base.String(), "/"),
		breaker: breaker,
		tracer:  otel.Tracer("adapter/rest"),
	}, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues one GET and returns the raw body. The breaker short-circuits
// while the backend is tripping.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "rest.get",
		trace.WithAttributes(attribute.String("http.path", path)))
	defer span.End()

	raw, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, path, query)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return raw.([]byte), nil
}

// GetJSON issues one GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rest: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("rest: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("rest: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rest: %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}
