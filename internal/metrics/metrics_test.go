package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/tasks", http.MethodGet, 200, 15*time.Millisecond)
	m.ObserveHTTP("/api/tasks", http.MethodGet, 200, 5*time.Millisecond)
	m.Payment("pro", "approved")
	m.Job("finance.sync", "ok")
	m.CacheLookup("dashboard", true)
	m.SetActiveSubscriptions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/tasks", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("pro", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("dashboard", "hit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.subscriptions))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mamaboss_payments_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("/", "GET", 200, time.Second)
	m.Payment("pro", "approved")
	m.Job("x", "ok")
	m.Renewal("renew", "ok")
	m.CacheLookup("dashboard", false)
	m.SetActiveSubscriptions(1)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
