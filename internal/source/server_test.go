package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"proxy-metrics-panel/internal/panel"
	"proxy-metrics-panel/internal/storage"
)

func newTestAPI(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore(1000)
	svc := NewService(store, NewMemoryCache(time.Minute), nil, nil)
	r := mux.NewRouter().UseEncodedPath()
	NewAPI(svc, "*", nil).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPI_IngestAndFetch(t *testing.T) {
	srv, _ := newTestAPI(t)
	ts := time.Now().Add(-5 * time.Minute).UnixMilli()

	body := `[
		{"timestamp": ` + jsonInt(ts) + `, "response_time_ms": 100, "incoming_bytes": 10},
		{"timestamp": ` + jsonInt(ts) + `, "response_time_ms": 140, "outgoing_bytes": 20}
	]`
	resp := post(t, srv.URL+"/metrics/proxy/p1/samples", body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest status = %d, want 202", resp.StatusCode)
	}
	var ack map[string]int
	json.NewDecoder(resp.Body).Decode(&ack)
	if ack["accepted"] != 2 {
		t.Errorf("accepted = %d, want 2", ack["accepted"])
	}

	client, err := panel.NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := client.Fetch(context.Background(), "p1", panel.Timeframe1h)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if snap.Uptime() != "100" || snap.ResponseTime() != "120" {
		t.Errorf("uptime/response = %q/%q, want 100/120", snap.Uptime(), snap.ResponseTime())
	}
	if snap.Health() != panel.HealthHealthy {
		t.Errorf("Health = %q, want healthy", snap.Health())
	}
	if len(snap.Requests()) != 60 || len(snap.Bandwidth()) != 60 {
		t.Errorf("series lengths = %d/%d, want 60", len(snap.Requests()), len(snap.Bandwidth()))
	}
}

func TestAPI_DataDefaultsAndErrors(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp, err := http.Get(srv.URL + "/metrics/proxy/p1/data")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Timeframe != panel.Timeframe1h {
		t.Errorf("timeframe = %q, want default 1h", snap.Timeframe)
	}

	bad, err := http.Get(srv.URL + "/metrics/proxy/p1/data?timeframe=90m")
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid timeframe status = %d, want 400", bad.StatusCode)
	}
}

func TestAPI_IngestSingleObject(t *testing.T) {
	srv, store := newTestAPI(t)
	ts := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)

	resp := post(t, srv.URL+"/metrics/proxy/edge%2F01/samples", `{"timestamp": "`+ts+`", "error_count": 1}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	got, _ := store.Range("edge/01", time.Now().Add(-time.Hour), time.Now())
	if len(got) != 1 || got[0].ErrorCount != 1 {
		t.Errorf("stored samples = %+v", got)
	}

	list, err := http.Get(srv.URL + "/metrics/proxies")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var out struct {
		Proxies []string `json:"proxies"`
	}
	json.NewDecoder(list.Body).Decode(&out)
	if len(out.Proxies) != 1 || out.Proxies[0] != "edge/01" {
		t.Errorf("proxies = %v, want [edge/01]", out.Proxies)
	}
}

func TestAPI_IngestRejectsBadBodies(t *testing.T) {
	srv, _ := newTestAPI(t)
	bodies := []string{
		``,
		`not json`,
		`{"timestamp": "yesterday"}`,
		`{"timestamp": true}`,
		`[{"timestamp": 1}] trailing`,
	}
	for _, body := range bodies {
		resp := post(t, srv.URL+"/metrics/proxy/p1/samples", body)
		if resp.StatusCode != http.StatusBadRequest {
			msg, _ := io.ReadAll(resp.Body)
			t.Errorf("body %q: status = %d (%s), want 400", body, resp.StatusCode, msg)
		}
	}
}

func TestAPI_IngestTooLarge(t *testing.T) {
	srv, store := newTestAPI(t)
	body := `[` + strings.Repeat(`{"response_time_ms": 1},`, maxIngestBytes/24+1) + `{}]`

	resp := post(t, srv.URL+"/metrics/proxy/p1/samples", body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
	if ids, _ := store.Proxies(); len(ids) != 0 {
		t.Errorf("oversized body should store nothing, proxies = %v", ids)
	}
}

func TestDecodeSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := DecodeSamples([]byte(`{"incoming_requests": 3, "response_time_ms": 12.5}`), "p1", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Timestamp != now.UnixMilli() || got[0].ProxyID != "p1" {
		t.Errorf("samples = %+v", got)
	}
	if got[0].IncomingRequests != 3 || got[0].ResponseTimeMs != 12.5 {
		t.Errorf("fields = %+v", got[0])
	}

	got, err = DecodeSamples([]byte(`[{"timestamp": "1767225600000"}, {"timestamp": 1767225660000}]`), "p2", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Timestamp != 1767225600000 || got[1].Timestamp != 1767225660000 {
		t.Errorf("samples = %+v", got)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
