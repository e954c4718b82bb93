// Package ui provides the Bubble Tea terminal interface for browsing pandals.
//
// # Layout
//
// The screen is a header line, a command bar, the content area and a footer:
//
//   - List view: the pandal list on the left and the detail pane for the
//     row under the cursor on the right. Below LayoutCompactWidth only one
//     pane is shown at a time.
//   - Log view: the tail of the configured log file, refreshed every tick
//     and pinned to the bottom unless scrolled up.
//
// # Data Flow
//
// The Model never calls the backend from View. Every tick it reads
// snapshots of the state stores and the location tracker; user actions run
// as commands and report back with actionMsg. Optimistic changes show up on
// the next snapshot, usually before the backend answers.
//
// Store alerts (failed favorite or visited toggles) arrive through Alerts,
// which implements state.Notifier, and are shown one at a time in a modal
// that must be dismissed.
//
// # Location
//
// The tracker polls only while the list view is on screen. Switching to the
// log view stops it; coming back restarts it. L asks for permission when it
// is missing and otherwise fetches a fresh position.
//
// # Detail Pane
//
// Opening the pane (enter) marks the pandal selected in the store and
// prefetches its images, evicting expired cache entries afterwards. Closing
// it (esc) clears the per-pandal busy and error bits the pane was showing.
//
// # Preferences
//
// Theme (T) and sort order (s) persist to the preferences file.
package ui
