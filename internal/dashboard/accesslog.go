package dashboard

import (
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// countingWriter records the status and body size of a response.
type countingWriter struct {
	http.ResponseWriter
	bytesWritten int64
	statusCode   int
}

func newCountingWriter(w http.ResponseWriter) *countingWriter {
	return &countingWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	atomic.AddInt64(&w.bytesWritten, int64(n))
	return n, err
}

func (w *countingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the wrapper.
func (w *countingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *countingWriter) BytesWritten() int64 {
	return atomic.LoadInt64(&w.bytesWritten)
}

// countingReader records how much of a request body was consumed.
type countingReader struct {
	io.ReadCloser
	bytesRead int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	atomic.AddInt64(&r.bytesRead, int64(n))
	return n, err
}

func (r *countingReader) BytesRead() int64 {
	return atomic.LoadInt64(&r.bytesRead)
}

// accessLog logs one debug line per request with its size in both
// directions.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			cw := newCountingWriter(w)
			var cr *countingReader
			if r.Body != nil {
				cr = &countingReader{ReadCloser: r.Body}
				r.Body = cr
			}

			next.ServeHTTP(cw, r)

			var in int64
			if cr != nil {
				in = cr.BytesRead()
			}
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", cw.statusCode,
				"bytes_in", humanize.Bytes(uint64(in)),
				"bytes_out", humanize.Bytes(uint64(cw.BytesWritten())),
				"duration", time.Since(start),
			)
		})
	}
}
