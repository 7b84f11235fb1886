package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_FetchRecordsRoundTrip(t *testing.T) {
	t.Parallel()

	var gotUserAgent, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		if r.URL.Path != ResourceAttempts {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"ip":"1.2.3.4","data":"payload","timestamp":"2024-01-01T00:00:00Z"}]`))
	}))
	t.Cleanup(server.Close)

	c := NewClient(Options{})
	records, err := c.FetchRecords(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchRecords returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %#v, want exactly one", records)
	}
	rec := records[0]
	if rec.ID != 1 || rec.IP != "1.2.3.4" {
		t.Fatalf("record = %#v, want id=1 ip=1.2.3.4", rec)
	}
	if rec.Data == nil || *rec.Data != "payload" {
		t.Fatalf("record data = %v, want payload", rec.Data)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", rec.Timestamp, want)
	}
	if !strings.HasPrefix(gotUserAgent, "honeywatch/") {
		t.Fatalf("User-Agent = %q, want honeywatch/*", gotUserAgent)
	}
	if gotAccept != "application/json" {
		t.Fatalf("Accept = %q, want application/json", gotAccept)
	}
}

func TestClient_FetchRecordsPreservesOrderAndNulls(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":9,"ip":"10.0.0.9","data":null,"timestamp":"2024-05-01T12:30:00.123456"},
			{"id":3,"ip":"10.0.0.3","data":"","timestamp":"2024-05-01T12:00:00+02:00"}
		]`))
	}))
	t.Cleanup(server.Close)

	records, err := NewClient(Options{}).FetchRecords(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchRecords returned error: %v", err)
	}
	if len(records) != 2 || records[0].ID != 9 || records[1].ID != 3 {
		t.Fatalf("records = %#v, want ids [9 3] in order", records)
	}
	if records[0].Data != nil {
		t.Fatalf("null data should stay nil, got %q", *records[0].Data)
	}
	if records[0].DataOr("N/A") != "N/A" {
		t.Fatalf("DataOr on null = %q, want N/A", records[0].DataOr("N/A"))
	}
	wantNaive := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)
	if !records[0].Timestamp.Equal(wantNaive) {
		t.Fatalf("naive timestamp = %v, want %v", records[0].Timestamp, wantNaive)
	}
	if records[1].Data == nil || *records[1].Data != "" {
		t.Fatalf("empty data should be preserved as empty string")
	}
}

func TestClient_FetchRecordsEmptyArray(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	records, err := NewClient(Options{}).FetchRecords(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchRecords returned error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("records = %#v, want empty non-nil slice", records)
	}
}

func TestClient_RecordLimitQuery(t *testing.T) {
	t.Parallel()

	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	c := NewClient(Options{RecordLimit: 25})
	if _, err := c.FetchRecords(context.Background(), server.URL+"/"); err != nil {
		t.Fatalf("FetchRecords returned error: %v", err)
	}
	if gotLimit != "25" {
		t.Fatalf("limit query = %q, want 25", gotLimit)
	}
}

func TestClient_FetchStatsAndHealth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ResourceStats:
			_, _ = w.Write([]byte(`{"total_attempts":42,"unique_ips":7}`))
		case ResourceHealth:
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := NewClient(Options{})
	stats, err := c.FetchStats(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchStats returned error: %v", err)
	}
	if stats != (StatsSummary{TotalAttempts: 42, UniqueIPs: 7}) {
		t.Fatalf("stats = %#v, want {42 7}", stats)
	}

	health, err := c.Health(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health status = %q, want ok", health.Status)
	}
}

func TestClient_FailureKinds(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ResourceAttempts:
			http.Error(w, "nope", http.StatusInternalServerError)
		case ResourceStats:
			_, _ = w.Write([]byte(`{"total_attempts":-1,"unique_ips":2}`))
		default:
			_, _ = w.Write([]byte("{not-json"))
		}
	}))
	t.Cleanup(server.Close)

	c := NewClient(Options{})

	_, err := c.FetchRecords(context.Background(), server.URL)
	assertKind(t, err, FailureStatus)
	if !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("error = %q, want status 500", err)
	}

	_, err = c.FetchStats(context.Background(), server.URL)
	assertKind(t, err, FailureDecode)

	_, err = c.Health(context.Background(), server.URL)
	assertKind(t, err, FailureDecode)
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := NewClient(Options{RequestTimeout: time.Second}).FetchRecords(context.Background(), addr)
	assertKind(t, err, FailureTransport)

	_, err = NewClient(Options{}).FetchRecords(context.Background(), "not a url")
	assertKind(t, err, FailureTransport)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	_, err := NewClient(Options{RequestTimeout: 50 * time.Millisecond}).FetchStats(context.Background(), server.URL)
	assertKind(t, err, FailureTransport)
}

func TestClient_NilReceiver(t *testing.T) {
	var c *Client
	if _, err := c.FetchRecords(context.Background(), "http://x"); err == nil {
		t.Fatalf("FetchRecords on nil client returned nil error")
	}
}

func assertKind(t *testing.T, err error, want FailureKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s failure", want)
	}
	if !errors.Is(err, ErrConnectivity) {
		t.Fatalf("error %v does not wrap ErrConnectivity", err)
	}
	var connErr *ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("error %T is not *ConnectivityError", err)
	}
	if connErr.Kind != want {
		t.Fatalf("kind = %s, want %s (err: %v)", connErr.Kind, want, err)
	}
}

func TestClient_FetchRecordsLargeEscapedPayloads(t *testing.T) {
	t.Parallel()

	// 100 records of 10000 control bytes each, JSON-escaped to \u0001.
	payload := strings.Repeat(`\u0001`, 10000)
	var body strings.Builder
	body.WriteString("[")
	for i := range 100 {
		if i > 0 {
			body.WriteString(",")
		}
		fmt.Fprintf(&body, `{"id":%d,"ip":"10.0.0.1","data":"%s","timestamp":"2024-01-01T00:00:00Z"}`, i+1, payload)
	}
	body.WriteString("]")
	if body.Len() <= 1<<20 {
		t.Fatalf("fixture is %d bytes, want more than 1 MiB", body.Len())
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body.String()))
	}))
	t.Cleanup(server.Close)

	records, err := NewClient(Options{}).FetchRecords(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchRecords returned error: %v", err)
	}
	if len(records) != 100 || records[0].Data == nil || len(*records[0].Data) != 10000 {
		t.Fatalf("got %d records, want 100 with full payloads", len(records))
	}
}

func TestClient_OversizedBodyIsDecodeFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat(" ", maxResponseBytes+1)))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(Options{}).FetchStats(context.Background(), server.URL)
	var ce *ConnectivityError
	if !errors.As(err, &ce) || ce.Kind != FailureDecode {
		t.Fatalf("error = %v, want decode ConnectivityError", err)
	}
}
