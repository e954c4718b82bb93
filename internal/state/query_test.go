package state

import (
	"testing"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/geo"
)

func ids(items []geo.Ranked[backend.Pandal]) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.Item.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func membership(ids ...string) MembershipSnapshot {
	set := map[string]struct{}{}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return MembershipSnapshot{IDs: set}
}

func TestApply(t *testing.T) {
	a := rated(pandal("a", "Sreebhumi", 22.58, 88.41), 4.5, 10)
	a.Theme = "Burj Khalifa replica"
	b := rated(pandal("b", "Ahiritola", 22.60, 88.36), 4.5, 40)
	b.ArtistName = "Sanatan Dinda"
	c := rated(pandal("c", "college square", 22.57, 88.36), 3.0, 40)
	c.Address = "College Street"
	d := backend.Pandal{ID: "d", ClubName: "Bagbazar"}

	origin := geo.Coordinate{Latitude: 22.57, Longitude: 88.36}
	ranked := geo.Rank(&origin, []backend.Pandal{a, b, c, d})

	tests := []struct {
		name string
		q    Query
		fav  MembershipSnapshot
		vis  MembershipSnapshot
		want []string
	}{
		{"name sort ignores case", Query{Sort: SortName}, membership(), membership(), []string{"b", "d", "c", "a"}},
		{"rating desc tie by id", Query{Sort: SortRating}, membership(), membership(), []string{"a", "b", "c", "d"}},
		{"popularity desc tie by id", Query{Sort: SortPopularity}, membership(), membership(), []string{"b", "c", "a", "d"}},
		{"distance keeps ranked order", Query{Sort: SortDistance}, membership(), membership(), []string{"c", "b", "a", "d"}},
		{"search theme", Query{Search: "  BURJ "}, membership(), membership(), []string{"a"}},
		{"search artist", Query{Search: "dinda"}, membership(), membership(), []string{"b"}},
		{"search address", Query{Search: "street"}, membership(), membership(), []string{"c"}},
		{"only favorites", Query{Favorites: Only}, membership("a", "c"), membership(), []string{"c", "a"}},
		{"hide visited", Query{Visited: Hide}, membership(), membership("b", "d"), []string{"c", "a"}},
		{"combined", Query{Favorites: Only, Visited: Hide, Sort: SortDistance}, membership("a", "b"), membership("b"), []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(ranked, tt.q, tt.fav, tt.vis))
			if !equalIDs(got, tt.want) {
				t.Fatalf("Apply(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestApply_DoesNotReorderInput(t *testing.T) {
	ranked := geo.Rank(nil, []backend.Pandal{pandal("z", "Zeta", 1, 1), pandal("a", "Alpha", 2, 2)})
	_ = Apply(ranked, Query{Sort: SortName}, membership(), membership())
	if got := ids(ranked); !equalIDs(got, []string{"z", "a"}) {
		t.Fatalf("input order = %v, want [z a]", got)
	}
}

func TestSortCycle(t *testing.T) {
	s := SortName
	seen := []string{}
	for i := 0; i < 5; i++ {
		seen = append(seen, s.String())
		s = s.Next()
	}
	want := []string{"name", "rating", "popularity", "distance", "name"}
	if !equalIDs(seen, want) {
		t.Fatalf("sort cycle = %v, want %v", seen, want)
	}
	if ParseSort("Distance") != SortDistance || ParseSort("bogus") != SortName {
		t.Fatalf("ParseSort mismatch")
	}
}

func TestQueryFiltered(t *testing.T) {
	if (Query{Sort: SortRating}).Filtered() {
		t.Fatalf("sort-only query reported as filtered")
	}
	if !(Query{Visited: Only}).Filtered() {
		t.Fatalf("visited filter not reported")
	}
}
