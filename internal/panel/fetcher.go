package panel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"proxy-metrics-panel/internal/util"
)

// User-facing error messages.
const (
	FetchFailedMessage  = "Failed to fetch metrics"
	GenericErrorMessage = "Unable to load metrics"
)

// maxSnapshotBytes bounds how much of a response body is read.
const maxSnapshotBytes = 16 * 1024 * 1024

// Fetcher retrieves one snapshot for a proxy and timeframe.
type Fetcher interface {
	Fetch(ctx context.Context, proxyID string, tf Timeframe) (*Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, proxyID string, tf Timeframe) (*Snapshot, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, proxyID string, tf Timeframe) (*Snapshot, error) {
	return f(ctx, proxyID, tf)
}

// HTTPStatusError reports a non-success response from the metrics source.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("metrics source returned status %d", e.Code)
}

// ErrorMessage converts a fetch error into the text shown to the user.
// Non-success statuses get a fixed message; other failures keep their own
// text when they have one.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return FetchFailedMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericErrorMessage
}

// Client fetches snapshots over HTTP from
// GET {BaseURL}/metrics/proxy/{proxyId}/data?timeframe={tf}.
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
}

// NewClient constructs a metrics source client. A zero timeout leaves the
// request unbounded.
func NewClient(base string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse metrics source url: %w", err)
	}
	return &Client{
		BaseURL: u,
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

// DataURL returns the endpoint URL for a proxy and timeframe.
func (c *Client) DataURL(proxyID string, tf Timeframe) string {
	base := strings.TrimSuffix(c.BaseURL.String(), "/")
	q := url.Values{"timeframe": []string{string(tf)}}
	return base + "/metrics/proxy/" + url.PathEscape(proxyID) + "/data?" + q.Encode()
}

// Fetch issues exactly one request and decodes the body.
func (c *Client) Fetch(ctx context.Context, proxyID string, tf Timeframe) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DataURL(proxyID, tf), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Code: resp.StatusCode}
	}

	b, err := util.ReadAllLimit(resp.Body, maxSnapshotBytes)
	if err != nil {
		return nil, fmt.Errorf("read metrics response: %w", err)
	}
	return DecodeSnapshot(b)
}
