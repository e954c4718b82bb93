// Package state holds the client-side projections of the pandal backend and
// the actions that mutate them.
//
// # Overview
//
// Each store mirrors one backend table for the current process:
//
//   - PandalStore: the pandal list, a freshness window and the detail selection
//   - MembershipStore: the signed-in user's favorites or visited set
//   - RatingStore: the user's own star ratings, persisted across restarts
//   - UserStore: the user's profile row
//
// Session owns one of each and ties the user-scoped stores to sign-in and
// sign-out. The UI never writes to the backend directly; it calls a store
// action and renders the store's snapshot.
//
// # Architecture
//
//	UI action                         UI refresh
//	    ↓                                 ↑
//	store action ──apply──→ store state ──Snapshot()
//	    ↓                        ↑
//	backend call ──settle────────┘ (revert on failure for toggles)
//
// # Concurrency Model
//
// Stores use a sync.RWMutex around their maps and slices. The lock is never
// held across a backend call: an action takes the lock to apply its local
// change, releases it, performs I/O, then takes it again to settle. Two
// toggles on the same pandal are not serialized; whichever settles last
// decides the final bit and the recorded error.
//
// PandalStore.Load is single-flight: a call made while another load runs
// returns ErrLoadInFlight without touching the network.
//
// # Optimistic Mutations
//
// Toggles and rating submissions share runOptimistic, which applies a local
// change, commits it, optionally reverts it and always settles:
//
//	Toggle:  apply flip + busy → commit insert/delete → revert flip on error → clear busy, set/clear error
//	Submit:  apply value + pending → commit 4 calls → (no revert) → synced or failed
//
// Ratings are not reverted. A rejected submission leaves the picker on the
// chosen value with RatingFailed and an error for that pandal. Only synced
// values are written to the ratings file.
//
// # Error Semantics
//
// Load failures keep whatever was cached and record an error string; the
// store is still marked initialized so callers never wait on it forever.
// Mutation failures are recorded per pandal id. Toggle failures also go to
// the Notifier, which the TUI shows as a modal alert. Every action also
// returns its error so callers can branch on it.
//
// # Derived Views
//
// PandalSnapshot.Version increases on every replace or patch. Callers that
// derive projections (distance ranking, filtered lists) can memoize on it.
// Apply filters and sorts a ranked list for the list screen.
//
// # Testing Considerations
//
// Tests drive the stores against an in-memory backend with injectable
// failures and a gate that holds a call open, so the optimistic state can be
// observed mid-flight. The now field on PandalStore and RatingStore is
// swapped to control time.
package state
