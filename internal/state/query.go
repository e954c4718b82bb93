package state

import (
	"sort"
	"strings"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/geo"
)

// SortBy orders the pandal list.
type SortBy int

const (
	SortName SortBy = iota
	SortRating
	SortPopularity
	SortDistance
)

var sortNames = []string{"name", "rating", "popularity", "distance"}

func (s SortBy) String() string {
	if int(s) < 0 || int(s) >= len(sortNames) {
		return sortNames[0]
	}
	return sortNames[s]
}

// Next cycles to the following sort order.
func (s SortBy) Next() SortBy {
	return SortBy((int(s) + 1) % len(sortNames))
}

// ParseSort maps a name back to SortBy, defaulting to SortName.
func ParseSort(name string) SortBy {
	for i, n := range sortNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return SortBy(i)
		}
	}
	return SortName
}

// Tri filters on a membership bit.
type Tri int

const (
	Any Tri = iota
	Only
	Hide
)

func (t Tri) String() string {
	switch t {
	case Only:
		return "only"
	case Hide:
		return "hide"
	default:
		return "any"
	}
}

func (t Tri) keep(member bool) bool {
	switch t {
	case Only:
		return member
	case Hide:
		return !member
	default:
		return true
	}
}

// Query narrows and orders the list screen.
type Query struct {
	Search    string
	Sort      SortBy
	Favorites Tri
	Visited   Tri
}

// Filtered reports whether any narrowing is active.
func (q Query) Filtered() bool {
	return strings.TrimSpace(q.Search) != "" || q.Favorites != Any || q.Visited != Any
}

// Apply filters ranked by q and returns a new slice in the requested order.
// Search matches club name, address, theme and artist name, ignoring case.
// Rating and popularity sort descending, name and distance ascending; ties
// fall back to id. Distance sort keeps ranked's order, which already puts
// unknown distances last.
func Apply(ranked []geo.Ranked[backend.Pandal], q Query, favorites, visited MembershipSnapshot) []geo.Ranked[backend.Pandal] {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]geo.Ranked[backend.Pandal], 0, len(ranked))
	for _, r := range ranked {
		p := r.Item
		if needle != "" && !matches(p, needle) {
			continue
		}
		if !q.Favorites.keep(favorites.Has(p.ID)) || !q.Visited.keep(visited.Has(p.ID)) {
			continue
		}
		out = append(out, r)
	}

	var less func(a, b backend.Pandal) (bool, bool)
	switch q.Sort {
	case SortRating:
		less = func(a, b backend.Pandal) (bool, bool) {
			return a.RatingValue() > b.RatingValue(), a.RatingValue() != b.RatingValue()
		}
	case SortPopularity:
		less = func(a, b backend.Pandal) (bool, bool) {
			return a.NumberOfRatings > b.NumberOfRatings, a.NumberOfRatings != b.NumberOfRatings
		}
	case SortDistance:
		return out
	default:
		less = func(a, b backend.Pandal) (bool, bool) {
			an, bn := strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())
			return an < bn, an != bn
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if lt, decided := less(out[i].Item, out[j].Item); decided {
			return lt
		}
		return out[i].Item.ID < out[j].Item.ID
	})
	return out
}

func matches(p backend.Pandal, needle string) bool {
	for _, field := range []string{p.ClubName, p.Address, p.Theme, p.ArtistName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
