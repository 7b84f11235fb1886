package collector

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// naiveTimestampLayout matches datetimes serialized without a UTC offset.
const naiveTimestampLayout = "2006-01-02T15:04:05.999999999"

// AttemptRecord mirrors one entry of /attempts/. Records are immutable once
// received.
type AttemptRecord struct {
	ID        int64     `json:"id" yaml:"id"`
	IP        string    `json:"ip" yaml:"ip"`
	Data      *string   `json:"data" yaml:"data"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as naive ISO-8601
// datetimes, which are interpreted as UTC.
func (r *AttemptRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        *int64  `json:"id"`
		IP        *string `json:"ip"`
		Data      *string `json:"data"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return fmt.Errorf("attempt record missing id")
	}
	if raw.IP == nil {
		return fmt.Errorf("attempt %d missing ip", *raw.ID)
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("attempt %d: %w", *raw.ID, err)
	}
	*r = AttemptRecord{
		ID:        *raw.ID,
		IP:        *raw.IP,
		Data:      raw.Data,
		Timestamp: ts,
	}
	return nil
}

// DataOr returns the record payload, or fallback when the collector sent null.
func (r AttemptRecord) DataOr(fallback string) string {
	if r.Data == nil {
		return fallback
	}
	return *r.Data
}

// StatsSummary mirrors /stats/.
type StatsSummary struct {
	TotalAttempts int64 `json:"total_attempts" yaml:"total_attempts"`
	UniqueIPs     int64 `json:"unique_ips" yaml:"unique_ips"`
}

// UnmarshalJSON requires both counters and rejects negative values.
func (s *StatsSummary) UnmarshalJSON(b []byte) error {
	var raw struct {
		TotalAttempts *int64 `json:"total_attempts"`
		UniqueIPs     *int64 `json:"unique_ips"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.TotalAttempts == nil || raw.UniqueIPs == nil {
		return fmt.Errorf("stats missing total_attempts or unique_ips")
	}
	if *raw.TotalAttempts < 0 || *raw.UniqueIPs < 0 {
		return fmt.Errorf("stats counters must be non-negative")
	}
	*s = StatsSummary{TotalAttempts: *raw.TotalAttempts, UniqueIPs: *raw.UniqueIPs}
	return nil
}

// HealthResponse mirrors /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation(naiveTimestampLayout, value, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
