package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusController_DefaultRegistry(t *testing.T) {
	c := NewPrometheusController("")
	require.Equal(t, DefaultPath, c.Key())

	r := mux.NewRouter()
	c.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPrometheusController_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	submissions := prometheus.NewCounter(prometheus.CounterOpts{Name: "map_test_submissions_total", Help: "test"})
	reg.MustRegister(submissions)
	submissions.Inc()

	r := mux.NewRouter()
	NewPrometheusControllerFor("/metrics", reg).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "map_test_submissions_total 1")
	require.NotContains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
