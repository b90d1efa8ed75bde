// Package insight is the HTTP client for the external insight and narrative
// services. It implements scoring.InsightService and
// explain.NarrativeService.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
)

// Endpoint paths relative to the base URL.
const (
	PathAssess  = "/v1/assess"
	PathExplain = "/v1/explain"
	PathHealth  = "/health"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client errors.
var (
	ErrMissingBaseURL    = errors.New("insight base URL is required")
	ErrMalformedResponse = errors.New("malformed insight response")
	ErrUnexpectedStatus  = errors.New("unexpected insight response status")
)

// Config configures a Client.
type Config struct {
	// BaseURL of the service, e.g. https://insight.internal:8443.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout applies to the underlying HTTP client. Per-call deadlines come
	// from the request context.
	Timeout time.Duration
	// HTTPClient overrides the default otelhttp-instrumented client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the insight service over HTTP with JSON bodies.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient validates cfg and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid insight base URL %q", cfg.BaseURL)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		logger:  cfg.Logger,
	}, nil
}

type assessRequest struct {
	Component string            `json:"component"`
	Record    record.Record     `json:"record"`
	Context   map[string]string `json:"context,omitempty"`
}

// assessResponse accepts either a generic value or, for risk, a risk_level.
type assessResponse struct {
	Value     *float64 `json:"value"`
	RiskLevel *float64 `json:"risk_level"`
	Rationale string   `json:"rationale"`
}

// Request implements scoring.InsightService.
func (c *Client) Request(ctx context.Context, component scoring.Component, rec record.Record, reqContext map[string]string) (scoring.Insight, error) {
	var resp assessResponse
	err := c.post(ctx, PathAssess, assessRequest{
		Component: string(component),
		Record:    rec,
		Context:   reqContext,
	}, &resp)
	if err != nil {
		return scoring.Insight{}, err
	}

	value := resp.Value
	if component == scoring.RiskAssessment && resp.RiskLevel != nil {
		value = resp.RiskLevel
	}
	if value == nil {
		return scoring.Insight{}, fmt.Errorf("%w: missing value for %s", ErrMalformedResponse, component)
	}
	return scoring.Insight{Value: *value, Rationale: resp.Rationale}, nil
}

type explainRequest struct {
	Target    record.Record `json:"target"`
	Candidate record.Record `json:"candidate"`
	Score     float64       `json:"score"`
}

type explainResponse struct {
	Reasons []string `json:"reasons"`
}

// Explain implements explain.NarrativeService.
func (c *Client) Explain(ctx context.Context, target, candidate record.Record, score float64) ([]string, error) {
	var resp explainResponse
	if err := c.post(ctx, PathExplain, explainRequest{Target: target, Candidate: candidate, Score: score}, &resp); err != nil {
		return nil, err
	}
	if resp.Reasons == nil {
		return nil, fmt.Errorf("%w: missing reasons", ErrMalformedResponse)
	}
	return resp.Reasons, nil
}

// HealthCheck reports whether the service answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("insight request %s: %w", path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read insight response: %w", err)
	}

	c.logger.Debug("insight request completed",
		"path", path,
		"status", res.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
