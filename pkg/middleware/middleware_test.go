package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/pkg/composables"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), DefaultLoggerOptions()))

	var seen string
	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = composables.UseRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "req-123", seen)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	require.Contains(t, buf.String(), "request completed")
}

func TestWithLogger_ContinuesIncomingTrace(t *testing.T) {
	var buf bytes.Buffer
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), DefaultLoggerOptions()))
	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.Header().Get("X-Trace-Id"))
	require.Contains(t, buf.String(), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), DefaultLoggerOptions()))
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	require.Contains(t, buf.String(), "panic recovered")
}

func TestAuthenticate(t *testing.T) {
	auth := HeaderAuthenticator{Header: "X-User-ID"}
	var got int64
	handler := Authenticate(auth, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = composables.UseUserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), got)
}

func TestAuthenticate_Optional(t *testing.T) {
	called := false
	handler := Authenticate(HeaderAuthenticator{Header: "X-User-ID"}, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, err := composables.UseUserID(r.Context())
		require.ErrorIs(t, err, composables.ErrNoUser)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_PerUser(t *testing.T) {
	limited := RateLimit(RateLimitConfig{RequestsPerPeriod: 1, Store: NewMemoryStore()})
	handler := Authenticate(HeaderAuthenticator{Header: "X-User-ID"}, true)(
		limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})),
	)

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-User-ID", user)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusAccepted, send("1"))
	require.Equal(t, http.StatusTooManyRequests, send("1"))
	require.Equal(t, http.StatusAccepted, send("2"))
}

func TestCors_Preflight(t *testing.T) {
	handler := Cors("https://map.example.org")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/map/api/update-requests", nil)
	req.Header.Set("Origin", "https://map.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "https://map.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
