package panel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"proxy-metrics-panel/internal/supervisor"
)

var (
	ErrEmptyProxyID = errors.New("proxy id must not be empty")
	ErrClosed       = errors.New("panel controller is closed")
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *supervisor.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithListener registers fn to receive every state transition. fn runs with
// the controller lock held, in transition order, and must not call back
// into the controller.
func WithListener(fn func(ViewState)) Option {
	return func(c *Controller) { c.listener = fn }
}

// WithTimeframe sets the timeframe used by the first fetch.
func WithTimeframe(tf Timeframe) Option {
	return func(c *Controller) {
		if tf.Valid() {
			c.timeframe = tf
		}
	}
}

// Controller owns the fetch lifecycle of one mounted panel.
//
// Every trigger (activation, timeframe change) takes a new token and moves
// the panel to loading. A response is applied only if its token is still
// the latest, so the last request wins regardless of completion order.
type Controller struct {
	proxyID  string
	fetcher  Fetcher
	logger   *slog.Logger
	metrics  *supervisor.Metrics
	listener func(ViewState)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     ViewState
	timeframe Timeframe
	token     uint64
	activated bool
	closed    bool
}

// NewController creates a controller for proxyID. No fetch is issued until
// Activate is called.
func NewController(proxyID string, fetcher Fetcher, opts ...Option) (*Controller, error) {
	if proxyID == "" {
		return nil, ErrEmptyProxyID
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		proxyID:   proxyID,
		fetcher:   fetcher,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
		timeframe: DefaultTimeframe,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = loadingState(c.timeframe, 0)
	return c, nil
}

// ProxyID returns the proxy this controller shows.
func (c *Controller) ProxyID() string {
	return c.proxyID
}

// State returns the current view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Timeframe returns the selected timeframe.
func (c *Controller) Timeframe() Timeframe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeframe
}

// Activate issues the first fetch. Later calls are no-ops.
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activated || c.closed {
		return
	}
	c.activated = true
	c.triggerLocked()
}

// SetTimeframe selects tf. If the panel is active and tf differs from the
// current selection, the snapshot is dropped and exactly one fetch is issued.
func (c *Controller) SetTimeframe(tf Timeframe) error {
	if !tf.Valid() {
		_, err := ParseTimeframe(string(tf))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if tf == c.timeframe {
		return nil
	}
	c.timeframe = tf
	if !c.activated {
		c.setLocked(loadingState(tf, c.token))
		return nil
	}
	c.triggerLocked()
	return nil
}

// Close tears the controller down. The in-flight request, if any, is
// canceled and its response discarded. Close does not wait for it.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Wait blocks until every fetch started so far has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) triggerLocked() {
	c.token++
	token, tf := c.token, c.timeframe
	c.setLocked(loadingState(tf, token))

	c.wg.Add(1)
	go c.fetch(token, tf)
}

func (c *Controller) fetch(token uint64, tf Timeframe) {
	defer c.wg.Done()

	start := time.Now()
	snap, err := c.fetcher.Fetch(c.ctx, c.proxyID, tf)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || token != c.token {
		c.metrics.RecordFetch(string(tf), supervisor.OutcomeStale, elapsed)
		c.logger.Debug("discarding superseded metrics response",
			"proxy_id", c.proxyID, "timeframe", tf, "token", token, "latest", c.token)
		return
	}

	if err == nil && snap == nil {
		err = errors.New(GenericErrorMessage)
	}
	if err != nil {
		c.metrics.RecordFetch(string(tf), supervisor.OutcomeError, elapsed)
		c.logger.Warn("metrics fetch failed",
			"proxy_id", c.proxyID, "timeframe", tf, "err", err, "duration", elapsed)
		c.setLocked(errorState(tf, token, ErrorMessage(err)))
		return
	}

	c.metrics.RecordFetch(string(tf), supervisor.OutcomeReady, elapsed)
	c.logger.Debug("metrics fetched",
		"proxy_id", c.proxyID, "timeframe", tf, "duration", elapsed)
	c.setLocked(readyState(tf, token, snap))
}

func (c *Controller) setLocked(st ViewState) {
	c.state = st
	if c.listener != nil {
		c.listener(st)
	}
}
