// Package logtail reads the tail of honeywatch's own log file for the
// dashboard's log view.
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(N) regardless of file size. Parse turns a slog JSON line into an Entry
// (time, level, message, sorted attributes); lines that are not JSON are
// kept as plain messages.
package logtail
