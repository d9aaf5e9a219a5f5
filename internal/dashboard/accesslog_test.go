package dashboard

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountingWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := newCountingWriter(rec)

	cw.Write([]byte("hello"))
	cw.Write([]byte(" world"))

	if cw.BytesWritten() != 11 {
		t.Errorf("BytesWritten = %d, want 11", cw.BytesWritten())
	}
	if cw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", cw.statusCode)
	}

	cw.WriteHeader(http.StatusTeapot)
	if cw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want 418", cw.statusCode)
	}

	cw.Flush()
	if !rec.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := accessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("done"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/metrics/proxy/p1/samples", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted || rec.Body.String() != "done" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
	line := buf.String()
	for _, want := range []string{"status=202", "bytes_in=\"10 B\"", "bytes_out=\"4 B\"", "path=/metrics/proxy/p1/samples"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}
