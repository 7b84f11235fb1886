package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/five82/honeywatch/internal/app"
	"github.com/five82/honeywatch/internal/state"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

const previewLimit = 100

func parseFormat(value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", value)
	}
}

func writeStructured(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}

// writeSnapshot prints the outcome of a poll cycle.
func writeSnapshot(w io.Writer, format outputFormat, snap state.SyncState) error {
	if format != formatTable {
		return writeStructured(w, format, snap)
	}

	if !snap.HasData() {
		// The error itself is reported by the caller.
		return nil
	}

	fmt.Fprintf(w, "Connected at:   %s\n", snap.ActiveEndpoint)
	fmt.Fprintf(w, "Total attempts: %d\n", snap.Stats.TotalAttempts)
	fmt.Fprintf(w, "Unique IPs:     %d\n", snap.Stats.UniqueIPs)
	fmt.Fprintln(w)

	if len(snap.Records) == 0 {
		fmt.Fprintln(w, "No attempts recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "IP", "Connection data", "Timestamp")
	for _, rec := range snap.Records {
		row := []string{
			"#" + strconv.FormatInt(rec.ID, 10),
			rec.IP,
			preview(rec.DataOr("N/A")),
			rec.Timestamp.Local().Format("02/01/2006 15:04:05"),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render records: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render records: %w", err)
	}
	return nil
}

// writeProbe prints one row per probed candidate.
func writeProbe(w io.Writer, format outputFormat, results []app.ProbeResult) error {
	if format != formatTable {
		return writeStructured(w, format, results)
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Endpoint", "Healthy", "Status", "Latency", "Error")
	for i, r := range results {
		row := []string{
			strconv.Itoa(i + 1),
			r.Endpoint,
			strconv.FormatBool(r.Healthy),
			r.Status,
			r.Latency.Round(time.Millisecond).String(),
			r.Error,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render probe: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render probe: %w", err)
	}
	return nil
}

func preview(data string) string {
	data = strings.Join(strings.Fields(data), " ")
	runes := []rune(data)
	if len(runes) <= previewLimit {
		return data
	}
	return string(runes[:previewLimit]) + "..."
}
