package panel

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	expirable "github.com/hashicorp/golang-lru/v2/expirable"

	"proxy-metrics-panel/internal/supervisor"
)

// Session is one mounted panel.
type Session struct {
	ID         string
	ProxyID    string
	Controller *Controller
	MountedAt  time.Time

	released atomic.Bool
}

// Registry holds mounted panel sessions. Sessions idle for longer than the
// TTL, or pushed out by the size limit, are unmounted.
type Registry struct {
	fetcher Fetcher
	bus     *supervisor.EventBus
	metrics *supervisor.Metrics
	logger  *slog.Logger

	lru     *expirable.LRU[string, *Session]
	mounted atomic.Int64
}

// NewRegistry creates a registry. bus and metrics may be nil.
func NewRegistry(fetcher Fetcher, maxSessions int, idleTTL time.Duration, bus *supervisor.EventBus, metrics *supervisor.Metrics, logger *slog.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		fetcher: fetcher,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
	// onEvict runs with the LRU lock held; release must not touch r.lru.
	r.lru = expirable.NewLRU[string, *Session](maxSessions, func(_ string, s *Session) {
		r.release(s)
	}, idleTTL)
	return r
}

// Mount creates a session for proxyID, activates its controller and
// returns it.
func (r *Registry) Mount(proxyID string, tf Timeframe) (*Session, error) {
	id := uuid.NewString()

	ctrl, err := NewController(proxyID, r.fetcher,
		WithLogger(r.logger.With("panel_id", id)),
		WithMetrics(r.metrics),
		WithTimeframe(tf),
		WithListener(func(st ViewState) {
			r.publish(supervisor.Event{
				Type:      supervisor.EventStateChanged,
				PanelID:   id,
				ProxyID:   proxyID,
				Timestamp: st.UpdatedAt,
				Status:    string(st.Status),
				Timeframe: string(st.Timeframe),
				Token:     st.Token,
				Error:     st.Err,
			})
		}),
	)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         id,
		ProxyID:    proxyID,
		Controller: ctrl,
		MountedAt:  time.Now(),
	}
	r.lru.Add(id, s)
	r.metrics.UpdateActivePanels(int(r.mounted.Add(1)))

	r.publish(supervisor.Event{
		Type:      supervisor.EventPanelMounted,
		PanelID:   id,
		ProxyID:   proxyID,
		Timestamp: s.MountedAt,
		Timeframe: string(ctrl.Timeframe()),
	})
	r.logger.Info("panel mounted", "panel_id", id, "proxy_id", proxyID, "timeframe", ctrl.Timeframe())

	ctrl.Activate()
	return s, nil
}

// Get returns the session and resets its idle timer.
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.lru.Get(id)
	if !ok {
		return nil, false
	}
	r.lru.Add(id, s)
	if s.released.Load() {
		// Expired between Get and Add.
		r.lru.Remove(id)
		return nil, false
	}
	return s, true
}

// Unmount removes the session. It reports whether the session existed.
func (r *Registry) Unmount(id string) bool {
	return r.lru.Remove(id)
}

// Len returns the number of mounted sessions.
func (r *Registry) Len() int {
	return int(r.mounted.Load())
}

// Close unmounts every session.
func (r *Registry) Close() {
	r.lru.Purge()
}

func (r *Registry) release(s *Session) {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.Controller.Close()
	r.metrics.UpdateActivePanels(int(r.mounted.Add(-1)))
	r.publish(supervisor.Event{
		Type:      supervisor.EventPanelUnmounted,
		PanelID:   s.ID,
		ProxyID:   s.ProxyID,
		Timestamp: time.Now(),
	})
	r.logger.Info("panel unmounted", "panel_id", s.ID, "proxy_id", s.ProxyID,
		"lifetime", time.Since(s.MountedAt).Round(time.Millisecond))
}

func (r *Registry) publish(e supervisor.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
