package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the detail pane is
	// hidden until focused and header labels shorten.
	LayoutCompactWidth = 100

	// LayoutDistanceWidth is the minimum list width that shows the distance
	// column.
	LayoutDistanceWidth = 48

	// LayoutListShare is the percentage of the width given to the list in
	// the dual-pane layout.
	LayoutListShare = 45
)

// Content limits.
const (
	// NearestLimit is how many nearby pandals the detail pane lists.
	NearestLimit = 10

	// LogTailLines is how many lines of the log file the log view keeps.
	LogTailLines = 500
)

// Timing constants.
const (
	// DefaultUIInterval is how often the model re-reads store snapshots.
	DefaultUIInterval = 500 * time.Millisecond

	// ActionTimeout bounds a single user-triggered backend call.
	ActionTimeout = 30 * time.Second
)
