package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/quillpad/quillpad/internal/metrics"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/api/v1/admin/subscriptions/{id}/block", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/admin/subscriptions/{id}/block", "409")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/admin/subscriptions/5b7c/block", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/admin/subscriptions/9e21/block", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMetrics_SkipsHealthChecks(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health/live", "200")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health/live", nil))

	assert.Equal(t, before, testutil.ToFloat64(counter))
}
