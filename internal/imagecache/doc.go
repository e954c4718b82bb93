// Package imagecache keeps a best-effort record of pandal images that have
// been warmed ahead of display.
//
// Entries are hints only: nothing depends on them for correctness and any of
// them may be dropped at any time. Expiry is lazy. Get drops an expired entry
// when it is read, and Cleanup scans the whole map; the UI calls Cleanup when
// a detail view opens rather than on a timer.
//
// PrefetchBatch mirrors how a detail view loads its gallery: the first three
// images are awaited so the top of the view is ready, and the rest follow a
// moment later without holding up the caller.
package imagecache
