package transport

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "req-1", seen)
	require.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "req-1", seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

type observed struct {
	route  string
	status int
}

type recordingObserver struct{ calls []observed }

func (o *recordingObserver) HTTPRequest(route string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{route, status})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger, obs))
	r.Get("/weeks/{weekID}/songs", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weeks/3/songs", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.Equal(t, []observed{{"/weeks/{weekID}/songs", http.StatusTeapot}}, obs.calls)
	require.Contains(t, buf.String(), "path=/weeks/3/songs")
	require.Contains(t, buf.String(), "status=418")
	require.Contains(t, buf.String(), "request_id=")
}
