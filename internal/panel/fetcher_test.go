package panel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Fetch(t *testing.T) {
	var gotPath, gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("timeframe")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"health":{"score":45},"summary":{"uptime":"99.5","response_time":"120"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	snap, err := client.Fetch(context.Background(), "p1", Timeframe24h)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/metrics/proxy/p1/data" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "24h" {
		t.Errorf("timeframe = %q, want 24h", gotQuery)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if snap.HealthScore() != 45 || snap.Uptime() != "99.5" || snap.ResponseTime() != "120" {
		t.Errorf("unexpected snapshot: score=%v uptime=%s rt=%s", snap.HealthScore(), snap.Uptime(), snap.ResponseTime())
	}
}

func TestClient_DataURLEscapesProxyID(t *testing.T) {
	client, err := NewClient("http://metrics.local/api", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got := client.DataURL("edge/01 a", Timeframe7d)
	want := "http://metrics.local/api/metrics/proxy/edge%2F01%20a/data?timeframe=7d"
	if got != want {
		t.Errorf("DataURL = %q, want %q", got, want)
	}
}

func TestClient_FetchNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "proxy not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, 0)
	_, err := client.Fetch(context.Background(), "missing", Timeframe1h)

	var se *HTTPStatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", se.Code)
	}
	if got := ErrorMessage(err); got != FetchFailedMessage {
		t.Errorf("ErrorMessage = %q, want %q", got, FetchFailedMessage)
	}
}

func TestClient_FetchParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, 0)
	_, err := client.Fetch(context.Background(), "p1", Timeframe1h)
	if err == nil {
		t.Fatal("expected parse error")
	}
	msg := ErrorMessage(err)
	if msg == FetchFailedMessage || msg == "" {
		t.Errorf("parse failures should keep their own text, got %q", msg)
	}
}

func TestClient_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, _ := NewClient(srv.URL, 50*time.Millisecond)
	_, err := client.Fetch(context.Background(), "p1", Timeframe1h)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"status", &HTTPStatusError{Code: 502}, FetchFailedMessage},
		{"wrapped status", errors.Join(errors.New("ctx"), &HTTPStatusError{Code: 500}), FetchFailedMessage},
		{"network", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"empty text", errors.New(""), GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusError(t *testing.T) {
	err := &HTTPStatusError{Code: 503}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("Error() = %q, want status code", err.Error())
	}
}
