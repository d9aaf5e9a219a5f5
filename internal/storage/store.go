// Package storage persists proxy traffic samples for the metrics source.
package storage

import (
	"errors"
	"time"
)

// ErrNotAvailable is returned by backends that cannot run on this platform.
var ErrNotAvailable = errors.New("storage backend not available")

// Sample is one recorded proxy request.
type Sample struct {
	ProxyID          string  `json:"proxy_id"`
	Timestamp        int64   `json:"timestamp"` // unix ms
	IncomingRequests int64   `json:"incoming_requests"`
	OutgoingRequests int64   `json:"outgoing_requests"`
	IncomingBytes    int64   `json:"incoming_bytes"`
	OutgoingBytes    int64   `json:"outgoing_bytes"`
	ResponseTimeMs   float64 `json:"response_time_ms"`
	ErrorCount       int64   `json:"error_count"`
}

// Time returns the sample timestamp.
func (s Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Store is the interface for sample storage.
type Store interface {
	// Insert records samples. Samples without a proxy id are rejected.
	Insert(samples ...Sample) error

	// Range returns the samples of proxyID with from <= timestamp <= to,
	// oldest first.
	Range(proxyID string, from, to time.Time) ([]Sample, error)

	// Proxies returns the ids that have at least one sample, sorted.
	Proxies() ([]string, error)

	// Close releases resources.
	Close() error
}

// ErrMissingProxyID is returned when a sample has no proxy id.
var ErrMissingProxyID = errors.New("sample has no proxy id")

// GetBinConfig returns the number of bins and interval for a time window.
// Used for consistent chart layouts.
func GetBinConfig(window time.Duration) (bins int, interval time.Duration) {
	switch {
	case window <= time.Hour:
		return 60, time.Minute
	case window <= 24*time.Hour:
		return 96, 15 * time.Minute
	case window <= 7*24*time.Hour:
		return 168, time.Hour
	default:
		return 120, 6 * time.Hour
	}
}
