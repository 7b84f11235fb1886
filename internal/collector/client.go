package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fetcher defines the collector exchanges the poller depends on.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	FetchRecords(ctx context.Context, endpoint string) ([]AttemptRecord, error)
	FetchStats(ctx context.Context, endpoint string) (StatsSummary, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

const (
	// ResourceAttempts is the path of the attempt listing.
	ResourceAttempts = "/attempts/"
	// ResourceStats is the path of the aggregate statistics.
	ResourceStats = "/stats/"
	// ResourceHealth is the path of the collector health check.
	ResourceHealth = "/health"

	defaultUserAgent      = "honeywatch/dev"
	defaultRequestTimeout = 5 * time.Second
	maxResponseBytes      = 16 << 20
)

// Options configure a Client.
type Options struct {
	// RequestTimeout bounds a single exchange. Zero uses 5s.
	RequestTimeout time.Duration
	// RecordLimit is sent as ?limit= on /attempts/ when positive.
	RecordLimit int
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the collector HTTP API. It holds no endpoint of its own;
// every call names the candidate it targets.
type Client struct {
	http        *http.Client
	userAgent   string
	recordLimit int
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		userAgent:   ua,
		recordLimit: opts.RecordLimit,
	}
}

// FetchRecords retrieves the attempt listing from endpoint.
func (c *Client) FetchRecords(ctx context.Context, endpoint string) ([]AttemptRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	query := url.Values{}
	if c.recordLimit > 0 {
		query.Set("limit", strconv.Itoa(c.recordLimit))
	}
	var payload []AttemptRecord
	if err := c.get(ctx, endpoint, ResourceAttempts, query, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []AttemptRecord{}
	}
	return payload, nil
}

// FetchStats retrieves aggregate statistics from endpoint.
func (c *Client) FetchStats(ctx context.Context, endpoint string) (StatsSummary, error) {
	if c == nil {
		return StatsSummary{}, fmt.Errorf("client is nil")
	}
	var payload StatsSummary
	if err := c.get(ctx, endpoint, ResourceStats, nil, &payload); err != nil {
		return StatsSummary{}, err
	}
	return payload, nil
}

// Health checks whether endpoint answers its health route.
func (c *Client) Health(ctx context.Context, endpoint string) (HealthResponse, error) {
	if c == nil {
		return HealthResponse{}, fmt.Errorf("client is nil")
	}
	var payload HealthResponse
	if err := c.get(ctx, endpoint, ResourceHealth, nil, &payload); err != nil {
		return HealthResponse{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, endpoint, resource string, query url.Values, dest any) error {
	fail := func(kind FailureKind, status int, err error) error {
		return &ConnectivityError{
			Endpoint:   endpoint,
			Resource:   resource,
			Kind:       kind,
			StatusCode: status,
			Err:        err,
		}
	}

	reqURL, err := resolveURL(endpoint, resource, query)
	if err != nil {
		return fail(FailureTransport, 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(FailureTransport, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(FailureTransport, 0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fail(FailureTransport, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(FailureStatus, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}
	if len(body) > maxResponseBytes {
		return fail(FailureDecode, resp.StatusCode, fmt.Errorf("response exceeds %d bytes", maxResponseBytes))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fail(FailureDecode, resp.StatusCode, err)
	}
	return nil
}

func resolveURL(endpoint, resource string, query url.Values) (string, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(endpoint), "/"))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute URL", endpoint)
	}
	base.Path = strings.TrimRight(base.Path, "/") + resource
	base.RawQuery = query.Encode()
	base.Fragment = ""
	return base.String(), nil
}
