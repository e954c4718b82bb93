// Package supabase provides an HTTP client for the PostgREST gateway that
// fronts the pandal database.
//
// # Overview
//
// The Client implements backend.Backend by translating each operation into a
// PostgREST request against /rest/v1/<table>:
//
//   - GET    pandals?select=*                      list all pandals
//   - GET    pandals?select=*&id=eq.<id>           one pandal
//   - PATCH  pandals?id=eq.<id>                    store a new rating aggregate
//   - GET    user_favourites?select=pandal_id&user_id=eq.<uid>
//   - POST   user_favourites                       insert (duplicates rejected)
//   - DELETE user_favourites?user_id=eq.<uid>&pandal_id=eq.<pid>
//   - POST   user_visited?on_conflict=user_id,pandal_id  (ignore-duplicates)
//   - POST   user_ratings?on_conflict=user_id,pandal_id  (merge-duplicates)
//   - POST   users                                 (return=representation)
//
// # Authentication
//
// Every request carries the project's anonymous key in the apikey header. The
// Authorization header carries the session token from the configured
// TokenSource, or the anonymous key when no session is active. Row level
// security on the server decides what the caller may read or write.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and User-Agent: pandals/0.1
//   - Carry a fresh X-Request-Id for correlating server logs
//   - Wait on an optional rate limiter before going out
//   - Have a 10 second client timeout
//
// There are no retries. Callers (the stores in internal/state) decide what a
// failure means for local state.
//
// # Error Handling
//
// Errors are wrapped with context:
//
//   - "execute request: dial tcp: connection refused"
//   - "api /rest/v1/user_favourites returned status 409: duplicate key ..."
//   - "decode response: unexpected EOF"
//
// 401 and 403 responses wrap backend.ErrUnauthorized. Single-row lookups that
// match nothing wrap backend.ErrNotFound.
//
// # Testing Considerations
//
// Use httptest.Server to stand in for the gateway; the client accepts any
// base URL, including plain http.
package supabase
