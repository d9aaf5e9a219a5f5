//go:build !mips64 && !mips64le && !ppc64 && !s390x

package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    proxy_id TEXT NOT NULL,
    ts INTEGER NOT NULL,
    incoming_requests INTEGER DEFAULT 0,
    outgoing_requests INTEGER DEFAULT 0,
    incoming_bytes INTEGER DEFAULT 0,
    outgoing_bytes INTEGER DEFAULT 0,
    response_time_ms REAL DEFAULT 0,
    error_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_samples_proxy_ts ON samples(proxy_id, ts);
CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);
`

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	db      *sql.DB
	maxRows int
	pruneMu sync.Mutex
	pruneWg sync.WaitGroup
	logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// It enables WAL mode for better concurrent performance.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	// Open with WAL mode and normal sync for performance
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteStore{
		db:      db,
		maxRows: maxRows,
		logger:  logger,
	}, nil
}

// Insert records samples in one transaction.
func (s *SQLiteStore) Insert(samples ...Sample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, smp := range samples {
		if smp.ProxyID == "" {
			return ErrMissingProxyID
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO samples (
			proxy_id, ts, incoming_requests, outgoing_requests,
			incoming_bytes, outgoing_bytes, response_time_ms, error_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if _, err := stmt.Exec(
			smp.ProxyID, smp.Timestamp, smp.IncomingRequests, smp.OutgoingRequests,
			smp.IncomingBytes, smp.OutgoingBytes, smp.ResponseTimeMs, smp.ErrorCount,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	// Trigger pruning check (best effort, non-blocking)
	s.pruneWg.Add(1)
	go func() {
		defer s.pruneWg.Done()
		s.maybePrune()
	}()

	return nil
}

// Range returns the samples of proxyID inside [from, to], oldest first.
func (s *SQLiteStore) Range(proxyID string, from, to time.Time) ([]Sample, error) {
	rows, err := s.db.Query(`
		SELECT proxy_id, ts, incoming_requests, outgoing_requests,
			incoming_bytes, outgoing_bytes, response_time_ms, error_count
		FROM samples
		WHERE proxy_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, id ASC
	`, proxyID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(
			&smp.ProxyID, &smp.Timestamp, &smp.IncomingRequests, &smp.OutgoingRequests,
			&smp.IncomingBytes, &smp.OutgoingBytes, &smp.ResponseTimeMs, &smp.ErrorCount,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// Proxies returns the distinct proxy ids, sorted.
func (s *SQLiteStore) Proxies() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT proxy_id FROM samples ORDER BY proxy_id`)
	if err != nil {
		return nil, fmt.Errorf("proxies query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan proxy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close waits for pending prunes and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.pruneWg.Wait()
	return s.db.Close()
}

// maybePrune checks if pruning is needed and runs it.
func (s *SQLiteStore) maybePrune() {
	if s.maxRows <= 0 {
		return
	}

	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&count); err != nil {
		s.logger.Error("prune count query failed", "err", err)
		return
	}

	if count <= s.maxRows {
		return
	}

	// Delete oldest rows in batches
	toDelete := count - s.maxRows
	const batchSize = 500
	if toDelete > batchSize {
		toDelete = batchSize
	}

	_, err := s.db.Exec(`
		DELETE FROM samples WHERE id IN (
			SELECT id FROM samples ORDER BY ts ASC, id ASC LIMIT ?
		)
	`, toDelete)
	if err != nil {
		s.logger.Error("prune failed", "err", err)
	} else {
		s.logger.Debug("pruned old samples", "deleted", toDelete)
	}
}
