package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsCycles(t *testing.T) {
	m := New()

	m.ObserveCycle("success", 20*time.Millisecond)
	m.ObserveCycle("success", 30*time.Millisecond)
	m.ObserveCycle("exhausted", time.Second)
	m.CycleSkipped()
	m.StatsFailed()
	m.CandidateFailed("http://localhost:8000", "transport")
	m.CandidateFailed("http://localhost:8000", "transport")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statsFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.candidateFailures.WithLabelValues("http://localhost:8000", "transport")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}

func TestMetrics_ActiveEndpointMoves(t *testing.T) {
	m := New()

	m.SetActiveEndpoint("http://a:8000")
	m.SetActiveEndpoint("http://b:8000")

	assert.Equal(t, 1, testutil.CollectAndCount(m.activeEndpoint))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeEndpoint.WithLabelValues("http://b:8000")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CycleSkipped()

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "honeywatch_poll_cycles_skipped_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
