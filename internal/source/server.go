package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/storage"
	"proxy-metrics-panel/internal/util"
)

// maxIngestBytes bounds one ingest request body.
const maxIngestBytes = 4 * 1024 * 1024

// API serves the metrics source endpoints.
type API struct {
	svc             *Service
	logger          *slog.Logger
	corsAllowOrigin string
}

// NewAPI creates the HTTP surface of svc.
func NewAPI(svc *Service, corsAllowOrigin string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svc: svc, logger: logger, corsAllowOrigin: corsAllowOrigin}
}

// Register adds the source routes to r. Routers built with UseEncodedPath
// are supported: path variables are unescaped before use.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/metrics/proxy/{proxyId}/data", a.handleData).Methods(http.MethodGet)
	r.HandleFunc("/metrics/proxy/{proxyId}/samples", a.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/metrics/proxies", a.handleProxies).Methods(http.MethodGet)
}

func (a *API) handleData(w http.ResponseWriter, r *http.Request) {
	a.setCORS(w)
	proxyID, ok := pathVar(r, "proxyId")
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid proxy id")
		return
	}

	tf := panel.DefaultTimeframe
	if v := r.URL.Query().Get("timeframe"); v != "" {
		parsed, err := panel.ParseTimeframe(v)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tf = parsed
	}

	body, err := a.svc.SnapshotJSON(r.Context(), proxyID, tf)
	if err != nil {
		a.logger.Error("snapshot failed", "proxy_id", proxyID, "timeframe", tf, "err", err)
		if errors.Is(err, storage.ErrNotAvailable) {
			a.writeError(w, http.StatusServiceUnavailable, "storage not available")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	a.setCORS(w)
	proxyID, ok := pathVar(r, "proxyId")
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid proxy id")
		return
	}

	b, err := util.ReadAllLimit(r.Body, maxIngestBytes)
	if errors.Is(err, util.ErrTooLarge) {
		// Drain a bounded tail so the client reads the status instead of a reset.
		io.CopyN(io.Discard, r.Body, maxIngestBytes)
		a.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	samples, err := DecodeSamples(b, proxyID, time.Now())
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.svc.Ingest(r.Context(), samples...); err != nil {
		a.logger.Error("ingest failed", "proxy_id", proxyID, "err", err)
		a.writeError(w, http.StatusInternalServerError, "failed to store samples")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{"accepted": len(samples)})
}

func (a *API) handleProxies(w http.ResponseWriter, r *http.Request) {
	a.setCORS(w)
	ids, err := a.svc.Proxies()
	if err != nil {
		a.logger.Error("list proxies failed", "err", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list proxies")
		return
	}
	a.writeJSON(w, map[string]any{"proxies": ids})
}

// sampleJSON is one ingested sample. Timestamp is unix milliseconds, an
// RFC 3339 string, or absent for "now".
type sampleJSON struct {
	Timestamp        any     `json:"timestamp"`
	IncomingRequests int64   `json:"incoming_requests"`
	OutgoingRequests int64   `json:"outgoing_requests"`
	IncomingBytes    int64   `json:"incoming_bytes"`
	OutgoingBytes    int64   `json:"outgoing_bytes"`
	ResponseTimeMs   float64 `json:"response_time_ms"`
	ErrorCount       int64   `json:"error_count"`
}

// DecodeSamples parses an ingest body holding one sample object or an
// array of them, all attributed to proxyID.
func DecodeSamples(b []byte, proxyID string, now time.Time) ([]storage.Sample, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	var raw []sampleJSON
	if b[0] == '[' {
		if err := util.DecodeJSON(b, &raw); err != nil {
			return nil, fmt.Errorf("invalid samples: %w", err)
		}
	} else {
		var one sampleJSON
		if err := util.DecodeJSON(b, &one); err != nil {
			return nil, fmt.Errorf("invalid sample: %w", err)
		}
		raw = []sampleJSON{one}
	}

	out := make([]storage.Sample, 0, len(raw))
	for i, s := range raw {
		ts, err := parseTimestamp(s.Timestamp, now)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out = append(out, storage.Sample{
			ProxyID:          proxyID,
			Timestamp:        ts.UnixMilli(),
			IncomingRequests: s.IncomingRequests,
			OutgoingRequests: s.OutgoingRequests,
			IncomingBytes:    s.IncomingBytes,
			OutgoingBytes:    s.OutgoingBytes,
			ResponseTimeMs:   s.ResponseTimeMs,
			ErrorCount:       s.ErrorCount,
		})
	}
	return out, nil
}

func parseTimestamp(v any, now time.Time) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return now, nil
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", x.String())
		}
		return time.UnixMilli(ms), nil
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t, nil
		}
		if ms, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", x)
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp type %T", v)
	}
}

// pathVar returns the unescaped route variable name.
func pathVar(r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(mux.Vars(r)[name])
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (a *API) setCORS(w http.ResponseWriter) {
	if a.corsAllowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", a.corsAllowOrigin)
	}
}

func (a *API) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode JSON response", "err", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
