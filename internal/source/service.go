package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/storage"
	"proxy-metrics-panel/internal/supervisor"
)

// Snapshot is the body of GET /metrics/proxy/{proxyId}/data.
type Snapshot struct {
	ProxyID     string                 `json:"proxy_id"`
	Timeframe   panel.Timeframe        `json:"timeframe"`
	GeneratedAt time.Time              `json:"generated_at"`
	Health      HealthBlock            `json:"health"`
	Summary     SummaryBlock           `json:"summary"`
	Requests    []panel.Point          `json:"requests"`
	Latency     []panel.Point          `json:"latency"`
	Errors      []panel.Point          `json:"errors"`
	Bandwidth   []panel.BandwidthPoint `json:"bandwidth"`
	Insights    []panel.Insight        `json:"insights"`
}

// HealthBlock is the "health" object of a snapshot.
type HealthBlock struct {
	Score  float64      `json:"score"`
	Status panel.Health `json:"status"`
}

// SummaryBlock is the "summary" object of a snapshot. Uptime and
// ResponseTime are preformatted display strings.
type SummaryBlock struct {
	Uptime       string `json:"uptime"`
	ResponseTime string `json:"response_time"`
	Summary
}

// Service computes snapshots from stored samples.
type Service struct {
	store   storage.Store
	cache   Cache
	metrics *supervisor.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a metrics source service. A nil cache disables caching.
func NewService(store storage.Store, cache Cache, metrics *supervisor.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Snapshot computes the snapshot of proxyID over tf, ending now.
func (s *Service) Snapshot(ctx context.Context, proxyID string, tf panel.Timeframe) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	window := tf.Duration()

	samples, err := s.store.Range(proxyID, now.Add(-window), now)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}

	sum := Summarize(samples)
	score := round2(HealthScore(sum))
	series := Bin(samples, window, now)

	return &Snapshot{
		ProxyID:     proxyID,
		Timeframe:   tf,
		GeneratedAt: now.UTC(),
		Health:      HealthBlock{Score: score, Status: panel.ClassifyHealth(score)},
		Summary: SummaryBlock{
			Uptime:       formatPercent(sum.SuccessRate),
			ResponseTime: formatMillis(sum.AvgResponseTime),
			Summary:      sum,
		},
		Requests:  series.Requests,
		Latency:   series.Latency,
		Errors:    series.Errors,
		Bandwidth: series.Bandwidth,
		Insights:  Insights(sum, series.Requests),
	}, nil
}

// SnapshotJSON returns the encoded snapshot, served from the cache when a
// fresh entry exists.
func (s *Service) SnapshotJSON(ctx context.Context, proxyID string, tf panel.Timeframe) ([]byte, error) {
	if s.cache == nil {
		s.metrics.RecordSnapshot("off")
		return s.encode(ctx, proxyID, tf)
	}
	if b, ok := s.cache.Get(ctx, proxyID, tf); ok {
		s.metrics.RecordSnapshot("hit")
		return b, nil
	}

	b, err := s.encode(ctx, proxyID, tf)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, proxyID, tf, b)
	s.metrics.RecordSnapshot("miss")
	return b, nil
}

func (s *Service) encode(ctx context.Context, proxyID string, tf panel.Timeframe) ([]byte, error) {
	snap, err := s.Snapshot(ctx, proxyID, tf)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Ingest stores samples and drops the cached snapshots of every proxy they
// touch.
func (s *Service) Ingest(ctx context.Context, samples ...storage.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := s.store.Insert(samples...); err != nil {
		return fmt.Errorf("store samples: %w", err)
	}
	s.metrics.RecordSamples(len(samples))

	if s.cache != nil {
		seen := make(map[string]struct{})
		for _, smp := range samples {
			if _, ok := seen[smp.ProxyID]; ok {
				continue
			}
			seen[smp.ProxyID] = struct{}{}
			s.cache.Invalidate(ctx, smp.ProxyID)
		}
	}

	s.logger.Debug("samples ingested", "count", len(samples))
	return nil
}

// Proxies returns the ids with stored samples.
func (s *Service) Proxies() ([]string, error) {
	ids, err := s.store.Proxies()
	if err != nil {
		return nil, fmt.Errorf("list proxies: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
