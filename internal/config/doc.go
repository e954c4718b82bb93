// Package config loads the pandals client configuration.
//
// # Configuration Discovery
//
// Load resolves settings in this order, later sources winning:
//
//  1. Built-in defaults
//  2. The TOML file at the given path, or ~/.config/pandals/config.toml
//  3. A .env file in the working directory (loaded into the environment,
//     never replacing variables that are already set)
//  4. PANDALS_* environment variables
//
// A missing config file is not an error. A file that exists but cannot be
// parsed is.
//
// # Default Values
//
//   - backend: rest
//   - freshness_window: 5m (how long a pandal list is served from cache)
//   - location_interval: 2m (location poll interval)
//   - image_cache_ttl: 30m
//   - log_file: ~/.local/state/pandals/pandals.log ("-" means stderr)
//   - log_level: info
//
// # TOML Format
//
//	backend = "rest"
//	supabase_url = "https://abc.supabase.co"
//	anon_key = "eyJ..."
//	access_token = "eyJ..."        # session JWT; its sub claim is the user id
//	requests_per_second = 5
//	freshness_window = "5m"
//	location_interval = "2m"
//	latitude = 22.5726             # fixed device position, optional
//	longitude = 88.3639
//
// For backend = "postgres", database_url replaces the REST settings.
//
// # Environment Overrides
//
//	PANDALS_SUPABASE_URL, PANDALS_SUPABASE_ANON_KEY, PANDALS_ACCESS_TOKEN,
//	PANDALS_DATABASE_URL, PANDALS_BACKEND, PANDALS_LOG_LEVEL,
//	PANDALS_REQUESTS_PER_SECOND
//
// # Path Expansion
//
// Paths starting with ~ expand to the user's home directory and are made
// absolute.
//
// # Validation
//
// Load finishes with Validate: the rest backend needs supabase_url and
// anon_key, the postgres backend needs database_url, and latitude and
// longitude must come as a pair.
package config
