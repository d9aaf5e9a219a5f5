//go:build mips64 || mips64le || ppc64 || s390x

package storage

import (
	"fmt"
	"log/slog"
	"time"
)

// SQLiteStore is a stub for platforms the pure Go driver does not build on.
type SQLiteStore struct{}

// NewSQLiteStore always fails on this platform.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	return nil, fmt.Errorf("sqlite on this platform: %w (use STORAGE=memory)", ErrNotAvailable)
}

func (s *SQLiteStore) Insert(samples ...Sample) error { return ErrNotAvailable }

func (s *SQLiteStore) Range(proxyID string, from, to time.Time) ([]Sample, error) {
	return nil, ErrNotAvailable
}

func (s *SQLiteStore) Proxies() ([]string, error) { return nil, ErrNotAvailable }

func (s *SQLiteStore) Close() error { return nil }
