package prefs

import (
	"errors"
	"fmt"
	"os"
)

const defaultRatingsPath = "~/.config/pandals/ratings.toml"

// Ratings is the persisted cache of the signed-in user's own ratings.
type Ratings struct {
	UserID  string         `toml:"user_id"`
	Loaded  bool           `toml:"loaded"`
	Ratings map[string]int `toml:"ratings"`
}

// RatingsFile reads and writes Ratings at a fixed path.
type RatingsFile struct {
	Path string
}

// DefaultRatingsPath returns the default ratings cache path.
func DefaultRatingsPath() string {
	return defaultRatingsPath
}

// Load returns the cached ratings. A missing or unreadable file yields an
// empty cache; out-of-range values are dropped.
func (f RatingsFile) Load() (Ratings, error) {
	empty := Ratings{Ratings: map[string]int{}}

	resolved, err := resolveOr(f.Path, defaultRatingsPath)
	if err != nil {
		return empty, nil
	}
	var r Ratings
	if !readTOML(resolved, &r) {
		return empty, nil
	}
	clean := make(map[string]int, len(r.Ratings))
	for id, v := range r.Ratings {
		if v >= 1 && v <= 5 {
			clean[id] = v
		}
	}
	r.Ratings = clean
	return r, nil
}

// Save replaces the cache file.
func (f RatingsFile) Save(r Ratings) error {
	resolved, err := resolveOr(f.Path, defaultRatingsPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if r.Ratings == nil {
		r.Ratings = map[string]int{}
	}
	return writeTOML(resolved, r)
}

// Clear removes the cache file. A missing file is not an error.
func (f RatingsFile) Clear() error {
	resolved, err := resolveOr(f.Path, defaultRatingsPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove ratings: %w", err)
	}
	return nil
}
