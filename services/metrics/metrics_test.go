package metricsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	eventsvc "github.com/trezcool/campus/services/events"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New(core.NewTestConfig())
	m.ObserveRequest("/api/fees", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("/api/fees", http.MethodGet, http.StatusNotFound, 5*time.Millisecond)

	totals, err := m.Gather()
	require.NoError(t, err)
	assert.Equal(t, 2.0, totals["campus_http_requests_total"])
	assert.Equal(t, 2.0, totals["campus_http_request_duration_seconds"])

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campus_http_requests_total{build=`)
}

func TestMetrics_WatchBroker(t *testing.T) {
	m := New(core.NewTestConfig())
	broker := eventsvc.NewInMemBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.WatchBroker(ctx, broker))
	require.NoError(t, broker.Publish(ctx, core.NewEvent(core.TopicFee, core.ActionPaid, "f1", nil)))
	require.NoError(t, broker.Publish(ctx, core.NewEvent(core.TopicLibrary, core.ActionIssued, "i1", nil)))

	assert.Eventually(t, func() bool {
		totals, err := m.Gather()
		return err == nil && totals["campus_events_published_total"] == 2
	}, time.Second, 10*time.Millisecond)

	totals, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, totals, "campus_events_dropped_total")
}
