package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/backend"
)

// DefaultFreshnessWindow is how long a successful load is served from cache.
const DefaultFreshnessWindow = 5 * time.Minute

// PandalSnapshot is a point-in-time copy of the pandal cache.
type PandalSnapshot struct {
	Pandals     []backend.Pandal
	Selected    *backend.Pandal
	Loading     bool
	Initialized bool
	Error       string
	FetchedAt   time.Time
	Version     uint64 // bumped on every replace or patch
}

// PandalStore is a read-through cache of the pandals table.
type PandalStore struct {
	src       backend.PandalSource
	log       *zap.Logger
	freshness time.Duration
	now       func() time.Time

	mu          sync.RWMutex
	pandals     []backend.Pandal
	selectedID  string
	loading     bool
	initialized bool
	err         string
	fetchedAt   time.Time
	version     uint64
}

// NewPandalStore builds a store over src. A non-positive freshness uses
// DefaultFreshnessWindow.
func NewPandalStore(src backend.PandalSource, freshness time.Duration, log *zap.Logger) *PandalStore {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PandalStore{
		src:       src,
		log:       log,
		freshness: freshness,
		now:       time.Now,
	}
}

// Load fetches every pandal unless the cache is still fresh. force skips the
// freshness check. A call made while another load runs does nothing and
// returns ErrLoadInFlight. On failure the previous list is kept and the error
// is recorded until the next successful load.
func (s *PandalStore) Load(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrLoadInFlight
	}
	if !force && len(s.pandals) > 0 && !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.freshness {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	pandals, err := s.src.ListPandals(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.initialized = true
	if err != nil {
		s.err = errMessage(err)
		s.log.Error("pandal load failed", zap.Error(err), zap.Int("cached", len(s.pandals)))
		return err
	}
	s.pandals = clonePandals(pandals)
	s.fetchedAt = s.now()
	s.err = ""
	s.version++
	s.log.Debug("pandals loaded", zap.Int("count", len(pandals)), zap.Bool("forced", force))
	return nil
}

// RefreshOne re-fetches a single pandal and patches it in place.
func (s *PandalStore) RefreshOne(ctx context.Context, id string) error {
	p, err := s.src.GetPandal(ctx, id)
	if err != nil {
		s.log.Warn("pandal refresh failed", zap.String("pandal_id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pandals {
		if s.pandals[i].ID == id {
			s.pandals[i] = p.Clone()
			s.version++
			return nil
		}
	}
	s.pandals = append(s.pandals, p.Clone())
	s.version++
	return nil
}

// UpdateRating patches a pandal's aggregate locally without a network call.
// It reports whether the pandal was cached.
func (s *PandalStore) UpdateRating(id string, rating float64, count int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pandals {
		if s.pandals[i].ID != id {
			continue
		}
		r := rating
		s.pandals[i].Rating = &r
		s.pandals[i].NumberOfRatings = count
		s.version++
		return true
	}
	return false
}

// Select marks the pandal shown in the detail view. It reports whether id is cached.
func (s *PandalStore) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.pandals, id) < 0 {
		return false
	}
	s.selectedID = id
	return true
}

// ClearSelection drops the detail-view selection.
func (s *PandalStore) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
}

// Clear resets the store to its initial state.
func (s *PandalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pandals = nil
	s.selectedID = ""
	s.loading = false
	s.initialized = false
	s.err = ""
	s.fetchedAt = time.Time{}
	s.version++
}

// Initialized reports whether a load has finished, successfully or not.
func (s *PandalStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Get returns a copy of the cached pandal with id.
func (s *PandalStore) Get(id string) (backend.Pandal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.pandals, id); i >= 0 {
		return s.pandals[i].Clone(), true
	}
	return backend.Pandal{}, false
}

// Snapshot returns a copy of the current cache.
func (s *PandalStore) Snapshot() PandalSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := PandalSnapshot{
		Pandals:     clonePandals(s.pandals),
		Loading:     s.loading,
		Initialized: s.initialized,
		Error:       s.err,
		FetchedAt:   s.fetchedAt,
		Version:     s.version,
	}
	if i := indexOf(s.pandals, s.selectedID); i >= 0 {
		sel := s.pandals[i].Clone()
		snap.Selected = &sel
	}
	return snap
}

// IsEmpty mirrors the list screen's empty state: nothing cached and nothing loading.
func (p PandalSnapshot) IsEmpty() bool {
	return len(p.Pandals) == 0 && !p.Loading
}

// IgnoreInFlight drops ErrLoadInFlight, for callers that treat a superseded
// load as success.
func IgnoreInFlight(err error) error {
	if errors.Is(err, ErrLoadInFlight) {
		return nil
	}
	return err
}

func indexOf(pandals []backend.Pandal, id string) int {
	if id == "" {
		return -1
	}
	for i := range pandals {
		if pandals[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePandals(items []backend.Pandal) []backend.Pandal {
	if len(items) == 0 {
		return nil
	}
	dup := make([]backend.Pandal, len(items))
	for i := range items {
		dup[i] = items[i].Clone()
	}
	return dup
}
