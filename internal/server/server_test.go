package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/honeywatch/internal/collector"
	"github.com/five82/honeywatch/internal/metrics"
	"github.com/five82/honeywatch/internal/state"
)

func seededStore() *state.Store {
	store := state.NewStore()
	store.Update(func(st *state.SyncState) {
		st.Records = []collector.AttemptRecord{{ID: 7, IP: "192.0.2.7", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
		st.Stats = collector.StatsSummary{TotalAttempts: 7, UniqueIPs: 1}
		st.ActiveEndpoint = "http://localhost:8000"
		st.LastUpdate = time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
		st.Loading = false
		st.Phase = state.PhaseSettled
	})
	return store
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, dest any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	return resp.StatusCode
}

func TestHandleState(t *testing.T) {
	ts := newTestServer(t, Options{Store: seededStore()})

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/state", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://localhost:8000", body["active_endpoint"])
	assert.Equal(t, "settled", body["phase"])
	assert.Equal(t, false, body["loading"])
	records, ok := body["records"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 1)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, 7.0, stats["total_attempts"])
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*state.SyncState)
		want   string
	}{
		{"loading", func(*state.SyncState) {}, "loading"},
		{"ok", func(st *state.SyncState) { st.Loading = false }, "ok"},
		{"degraded", func(st *state.SyncState) {
			st.Loading = false
			st.ErrorMessage = "unable to reach the collector"
		}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore()
			store.Update(tt.mutate)
			ts := newTestServer(t, Options{Store: store})

			var body healthResponse
			status := getJSON(t, ts.URL+"/healthz", &body)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, body.Status)
		})
	}
}

func TestHandleRefresh(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, Options{Store: seededStore(), Trigger: func() { calls.Add(1) }})

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHandleRefresh_DisabledWithoutTrigger(t *testing.T) {
	ts := newTestServer(t, Options{Store: seededStore()})

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.StatsFailed()
	ts := newTestServer(t, Options{Store: seededStore(), Metrics: m.Handler()})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "honeywatch_stats_failures_total 1")
}

func TestHandleEvents_Headers(t *testing.T) {
	srv := New(Options{Store: seededStore()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleEvents(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: {"))
}

func TestHandleEvents_StreamsUpdates(t *testing.T) {
	store := seededStore()
	ts := newTestServer(t, Options{Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Equal(t, "http://localhost:8000", first.ActiveEndpoint)

	store.Update(func(st *state.SyncState) {
		st.ActiveEndpoint = "http://127.0.0.1:8000"
	})
	next := readEvent(t, reader)
	assert.Equal(t, "http://127.0.0.1:8000", next.ActiveEndpoint)
}

func TestHandleEvents_EndsWhenStoreCloses(t *testing.T) {
	store := seededStore()
	srv := New(Options{Store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleEvents(rec, req)
		close(done)
	}()

	store.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SSE handler did not return after store close")
	}
}

func TestHandleEvents_RejectsClosedStore(t *testing.T) {
	store := seededStore()
	store.Close()
	ts := newTestServer(t, Options{Store: store})

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEqual(t, "text/event-stream", resp.Header.Get("Content-Type"))
}

func TestStart_ServesAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(Options{Addr: "127.0.0.1:0", Store: seededStore()})
	require.NoError(t, srv.Start(ctx))

	addr := srv.Addr()
	require.NotEmpty(t, addr)

	var body healthResponse
	getJSON(t, "http://"+addr+"/healthz", &body)
	assert.Equal(t, "ok", body.Status)

	cancel()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return true
		}
		_ = conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	srv := New(Options{Addr: ln.Addr().String(), Store: seededStore()})
	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")
}

func readEvent(t *testing.T, r *bufio.Reader) state.SyncState {
	t.Helper()
	type result struct {
		snap state.SyncState
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				ch <- result{err: err}
				return
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var snap state.SyncState
				ch <- result{snap: snap, err: json.Unmarshal([]byte(data), &snap)}
				return
			}
		}
	}()
	select {
	case res := <-ch:
		require.NoError(t, res.err)
		return res.snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SSE event")
		return state.SyncState{}
	}
}
