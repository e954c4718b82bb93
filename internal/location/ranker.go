package location

import (
	"sync"

	"github.com/five82/pandals/internal/geo"
)

// Ranker memoizes geo.Rank on the origin and the list version, so the list
// is only re-sorted when the position or the underlying items change.
type Ranker[T geo.Located] struct {
	mu      sync.Mutex
	valid   bool
	origin  *geo.Coordinate
	version uint64
	out     []geo.Ranked[T]
}

// Rank returns items ranked by distance from origin. version must change
// whenever items does.
func (r *Ranker[T]) Rank(origin *geo.Coordinate, version uint64, items []T) []geo.Ranked[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.valid && r.version == version && sameOrigin(r.origin, origin) {
		return r.out
	}
	r.out = geo.Rank(origin, items)
	r.version = version
	r.valid = true
	r.origin = nil
	if origin != nil {
		c := *origin
		r.origin = &c
	}
	return r.out
}

// Reset forces the next Rank to recompute.
func (r *Ranker[T]) Reset() {
	r.mu.Lock()
	r.valid = false
	r.out = nil
	r.mu.Unlock()
}

func sameOrigin(a, b *geo.Coordinate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
