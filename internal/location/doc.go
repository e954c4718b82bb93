// Package location tracks the device position and ranks pandals by distance
// from it.
//
// # State Machine
//
//	idle → requesting-permission → fetching → succeeded | failed
//	                 ↓                 ↑
//	              failed        every interval, Refresh
//
// Start runs the permission check and a first read, then polls every
// interval (two minutes by default) while permission is held. A denial
// leaves the coordinate nil, records "Location permission denied" and stops
// asking; only RequestPermission, which the UI binds to a key, asks again.
// Fetch failures record "Failed to get current location" and keep the last
// known coordinate.
//
// Stop cancels the loop and waits for it, so the UI can tie polling to the
// list view being visible.
//
// # Ranking
//
// Ranker wraps geo.Rank with a one-entry memo keyed on the origin and the
// pandal list version, matching the list screen's need to re-sort only when
// either changes.
package location
