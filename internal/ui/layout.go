package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the width below which the header drops the
	// endpoint label and the table narrows its fixed columns.
	LayoutCompactWidth = 100
)

// Table column widths.
const (
	columnIDWidth        = 8
	columnIPWidth        = 15
	columnIPWideWidth    = 39
	columnTimestampWidth = 19
	columnGap            = 2
	minDataWidth         = 10
)

// Log display limits.
const (
	// LogTailLines is how many lines of the log file the logs view reads.
	LogTailLines = 500
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)

// honeypotPort is the SSH port the honeypot listens on, shown while no
// attempts have been recorded.
const honeypotPort = 2222

// cardHeight is the rendered height of a stat card including its border.
const cardHeight = 4
