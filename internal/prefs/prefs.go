// Package prefs persists small per-user files for pandals: the UI preferences
// in ~/.config/pandals/prefs.toml and the cached personal ratings in
// ~/.config/pandals/ratings.toml.
//
// Reads never fail. A missing or corrupt file yields defaults, so a bad file
// cannot keep the client from starting.
package prefs

import (
	"fmt"
	"strings"
)

// Prefs holds UI preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	Sort  string `toml:"sort,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/pandals/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, or the default path when empty. The
// error is always nil; it is kept so callers treat this like any other load.
func Load(path string) (Prefs, error) {
	var p Prefs
	if resolved, err := resolveOr(path, defaultPrefsPath); err == nil {
		if !readTOML(resolved, &p) {
			p = Prefs{}
		}
	}
	return p.normalized(), nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolveOr(path, defaultPrefsPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return writeTOML(resolved, p.normalized())
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	return p
}
