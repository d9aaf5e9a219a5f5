// Package dashboard is the host HTTP surface: it mounts metrics panels for
// proxies, renders them and streams their state changes.
package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	g "maragu.dev/gomponents"

	"proxy-metrics-panel/internal/config"
	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/source"
	"proxy-metrics-panel/internal/supervisor"
	"proxy-metrics-panel/internal/view"
)

// StaticPrefix is where the embedded panel assets are served.
const StaticPrefix = "/static"

// Handler routes every request of the process.
type Handler struct {
	cfg           config.Config
	features      config.Features
	router        *mux.Router
	registry      *panel.Registry
	renderer      *view.Renderer
	eventBus      *supervisor.EventBus
	metrics       *supervisor.Metrics
	healthChecker *supervisor.HealthChecker
	staticFS      fs.FS
	logger        *slog.Logger
}

// Deps are the collaborators of a Handler. Any of them may be nil when the
// matching feature is off.
type Deps struct {
	Registry      *panel.Registry
	Renderer      *view.Renderer
	EventBus      *supervisor.EventBus
	Metrics       *supervisor.Metrics
	HealthChecker *supervisor.HealthChecker
	Source        *source.API
	StaticFS      fs.FS
}

// NewHandler constructs the host handler.
func NewHandler(cfg config.Config, deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = view.NewRenderer()
	}
	h := &Handler{
		cfg:           cfg,
		features:      cfg.Features(),
		router:        mux.NewRouter().UseEncodedPath(),
		registry:      deps.Registry,
		renderer:      renderer,
		eventBus:      deps.EventBus,
		metrics:       deps.Metrics,
		healthChecker: deps.HealthChecker,
		staticFS:      deps.StaticFS,
		logger:        logger,
	}
	h.routes(deps.Source)
	return h
}

func (h *Handler) routes(src *source.API) {
	r := h.router
	r.Use(accessLog(h.logger))

	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/healthz/source", h.handleHealthzSource).Methods(http.MethodGet)
	if h.features.Metrics && h.metrics != nil {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	if h.features.Source && src != nil {
		src.Register(r)
	}

	if h.features.Panel && h.registry != nil {
		r.HandleFunc("/proxies/{proxyId}/metrics", h.handleMount).Methods(http.MethodGet)
		r.HandleFunc("/panels/{panelId}", h.handlePage).Methods(http.MethodGet)
		r.HandleFunc("/panels/{panelId}", h.handleUnmount).Methods(http.MethodDelete)
		r.HandleFunc("/panels/{panelId}/fragment", h.handleFragment).Methods(http.MethodGet)
		r.HandleFunc("/panels/{panelId}/timeframe", h.handleTimeframe).Methods(http.MethodPost)
		r.HandleFunc("/panels/{panelId}/events", h.handleSSEEvents).Methods(http.MethodGet)
		r.PathPrefix(StaticPrefix + "/").Handler(h.staticHandler()).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler. CORS preflight requests are answered
// here, before routing, since routes are bound to their own methods.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cfg.CORSAllowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", h.cfg.CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	h.router.ServeHTTP(w, r)
}

func panelURL(id string) string {
	return "/panels/" + id
}

func withTab(u string, tab view.Tab) string {
	return u + "?" + url.Values{"tab": {string(tab)}}.Encode()
}

func (h *Handler) handleMount(w http.ResponseWriter, r *http.Request) {
	proxyID, err := url.PathUnescape(mux.Vars(r)["proxyId"])
	if err != nil || proxyID == "" {
		http.Error(w, "invalid proxy id", http.StatusBadRequest)
		return
	}

	tf := panel.DefaultTimeframe
	if v := r.URL.Query().Get("timeframe"); v != "" {
		if tf, err = panel.ParseTimeframe(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	sess, err := h.registry.Mount(proxyID, tf)
	if err != nil {
		h.logger.Error("mount panel failed", "proxy_id", proxyID, "err", err)
		http.Error(w, "failed to mount panel", http.StatusInternalServerError)
		return
	}

	tab := view.ParseTab(r.URL.Query().Get("tab"))
	http.Redirect(w, r, withTab(panelURL(sess.ID), tab), http.StatusSeeOther)
}

// session resolves the panel of the request or answers 404.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*panel.Session, bool) {
	sess, ok := h.registry.Get(mux.Vars(r)["panelId"])
	if !ok {
		http.Error(w, "panel not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tab := view.ParseTab(r.URL.Query().Get("tab"))
	u := panelURL(sess.ID)

	body := h.renderer.Render(sess.Controller.State(), view.Props{PanelURL: u, Tab: tab})
	h.writeHTML(w, view.Page(view.PageProps{
		ProxyID:      sess.ProxyID,
		PanelURL:     u,
		Tab:          tab,
		StaticPrefix: StaticPrefix,
	}, body))
}

func (h *Handler) handleFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tab := view.ParseTab(r.URL.Query().Get("tab"))
	h.writeHTML(w, h.renderer.Render(sess.Controller.State(), view.Props{PanelURL: panelURL(sess.ID), Tab: tab}))
}

func (h *Handler) handleTimeframe(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	err := sess.Controller.SetTimeframe(panel.Timeframe(r.PostForm.Get("timeframe")))
	switch {
	case errors.Is(err, panel.ErrClosed):
		http.Error(w, "panel not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Scripted clients follow the change over SSE.
	if r.Header.Get("X-Requested-With") == "fetch" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	tab := view.ParseTab(r.PostForm.Get("tab"))
	http.Redirect(w, r, withTab(panelURL(sess.ID), tab), http.StatusSeeOther)
}

func (h *Handler) handleUnmount(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Unmount(mux.Vars(r)["panelId"]) {
		http.Error(w, "panel not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSSEEvents streams the lifecycle events of one panel. The current
// state is sent first so a client never misses the transition it is
// waiting for.
func (h *Handler) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	if h.eventBus == nil {
		http.Error(w, "event bus not available", http.StatusServiceUnavailable)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := h.eventBus.Subscribe()
	defer h.eventBus.Unsubscribe(eventCh)

	_, _ = w.Write([]byte(": connected\n\n"))
	st := sess.Controller.State()
	if sseData, err := supervisor.FormatSSEEvent(supervisor.Event{
		Type:      supervisor.EventStateChanged,
		PanelID:   sess.ID,
		ProxyID:   sess.ProxyID,
		Timestamp: st.UpdatedAt,
		Status:    string(st.Status),
		Timeframe: string(st.Timeframe),
		Token:     st.Token,
		Error:     st.Err,
	}); err == nil {
		_, _ = w.Write([]byte(sseData))
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if event.PanelID != sess.ID {
				continue
			}
			sseData, err := supervisor.FormatSSEEvent(event)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte(sseData)); err != nil {
				return
			}
			flusher.Flush()
			if event.Type == supervisor.EventPanelUnmounted {
				return
			}
		}
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleHealthzSource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.healthChecker == nil {
		json.NewEncoder(w).Encode(map[string]any{
			"healthy":    true,
			"last_check": time.Now().Format(time.RFC3339),
		})
		return
	}

	healthy := h.healthChecker.Healthy()
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]any{
		"healthy":    healthy,
		"last_check": h.healthChecker.LastCheck().Format(time.RFC3339),
	}
	if lastError := h.healthChecker.LastError(); lastError != "" {
		response["last_error"] = lastError
	}
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) staticHandler() http.Handler {
	if h.staticFS == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	files := http.StripPrefix(StaticPrefix, http.FileServer(http.FS(h.staticFS)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// writeHTML renders n fully before writing so a render failure can still
// produce a 500.
func (h *Handler) writeHTML(w http.ResponseWriter, n g.Node) {
	var buf bytes.Buffer
	if err := n.Render(&buf); err != nil {
		h.logger.Error("render failed", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
