// Package app provides the orchestration layer for the pandals application.
//
// # Overview
//
// This package is the composition root: it loads configuration, opens the
// logger and the backend, builds the state session and hands everything to
// the UI.
//
// # Startup
//
//  1. Load ~/.config/pandals/config.toml, .env and PANDALS_* variables
//  2. Open the zap logger on the configured log file
//  3. Open the backend: the Supabase REST client or a Postgres database
//  4. Build state.Session with the ratings file and the UI alert channel
//  5. Sign in with the configured access token, which starts the session,
//     or load the pandal list as a guest
//  6. Launch the background poller and the location tracker
//  7. Start the TUI and block until the user exits or the context cancels
//
// # Polling Behavior
//
// The poller reloads the pandal list once per freshness window. Loads go
// through the store's freshness check, so a refresh the user triggered in
// between is not repeated. Consecutive failures back off exponentially up
// to maxBackoff; the previous list stays on screen meanwhile.
//
// # Error Handling
//
// Configuration, logging and backend setup errors are returned from Run.
// Failed sign-in and failed initial loads are logged and the UI starts
// anyway, showing the store errors in place.
package app
