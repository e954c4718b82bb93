package state

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/backend"
)

// relation is the remote side of one membership set.
type relation struct {
	list   func(ctx context.Context, userID string) ([]string, error)
	add    func(ctx context.Context, userID, pandalID string) error
	remove func(ctx context.Context, userID, pandalID string) error
}

// messages holds the user-facing alert text for one membership kind.
type messages struct {
	loadFailed   string
	addFailed    string
	removeFailed string
}

// MembershipSnapshot is a point-in-time copy of a membership store.
type MembershipSnapshot struct {
	IDs         map[string]struct{}
	Busy        map[string]struct{}
	Errors      map[string]string
	Initialized bool
	LoadError   string
}

// Has reports membership of id in the snapshot.
func (m MembershipSnapshot) Has(id string) bool {
	_, ok := m.IDs[id]
	return ok
}

// MembershipStore holds the current user's set of favorite or visited pandals.
type MembershipStore struct {
	name   string
	rel    relation
	msg    messages
	notify Notifier
	log    *zap.Logger

	mu          sync.RWMutex
	gen         uint64 // bumped on Clear
	ids         map[string]struct{}
	busy        map[string]int
	errs        map[string]string
	initialized bool
	loadErr     string
}

// NewFavorites builds the favorites store. Adding inserts a row and fails on
// duplicates; removing deletes by (user, pandal).
func NewFavorites(src backend.FavoriteSource, notify Notifier, log *zap.Logger) *MembershipStore {
	return newMembership("favorites", relation{
		list:   src.ListFavoriteIDs,
		add:    src.InsertFavorite,
		remove: src.DeleteFavorite,
	}, messages{
		loadFailed:   "Failed to load favorites",
		addFailed:    "Failed to add to favorites",
		removeFailed: "Failed to remove from favorites",
	}, notify, log)
}

// NewVisited builds the visited store. Adding upserts and ignores duplicates.
func NewVisited(src backend.VisitedSource, notify Notifier, log *zap.Logger) *MembershipStore {
	return newMembership("visited", relation{
		list:   src.ListVisitedIDs,
		add:    src.UpsertVisited,
		remove: src.DeleteVisited,
	}, messages{
		loadFailed:   "Failed to load visited",
		addFailed:    "Failed to mark as visited",
		removeFailed: "Failed to remove visited status",
	}, notify, log)
}

func newMembership(name string, rel relation, msg messages, notify Notifier, log *zap.Logger) *MembershipStore {
	if notify == nil {
		notify = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MembershipStore{
		name:   name,
		rel:    rel,
		msg:    msg,
		notify: notify,
		log:    log.With(zap.String("store", name)),
		ids:    make(map[string]struct{}),
		busy:   make(map[string]int),
		errs:   make(map[string]string),
	}
}

// Name returns "favorites" or "visited".
func (s *MembershipStore) Name() string { return s.name }

// Load replaces the set with the user's rows. The store is marked initialized
// whether or not the fetch succeeds; on failure the current set is kept.
func (s *MembershipStore) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	ids, err := s.rel.list(ctx, userID)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return err
	}
	s.initialized = true
	if err != nil {
		s.loadErr = errMessage(err)
		s.mu.Unlock()
		s.log.Error("membership load failed", zap.String("user_id", userID), zap.Error(err))
		s.notify.Alert("Error", s.msg.loadFailed)
		return err
	}
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.ids = next
	s.loadErr = ""
	s.mu.Unlock()
	return nil
}

// Toggle flips membership of pandalID optimistically, then writes it remotely.
// On failure the bit returns to its pre-toggle value, an error is recorded for
// pandalID and the notifier is alerted. The busy flag is held until the call
// settles. Overlapping toggles on the same id are not serialized: each flips
// the bit it finds, so the later press wins locally.
func (s *MembershipStore) Toggle(ctx context.Context, pandalID, userID string) error {
	if userID == "" {
		return ErrNoUser
	}

	var (
		was bool
		gen uint64
	)
	err := runOptimistic(ctx, mutation{
		apply: func() {
			s.mu.Lock()
			_, was = s.ids[pandalID]
			gen = s.gen
			s.set(pandalID, !was)
			s.busy[pandalID]++
			s.mu.Unlock()
		},
		commit: func(ctx context.Context) error {
			if was {
				return s.rel.remove(ctx, userID, pandalID)
			}
			return s.rel.add(ctx, userID, pandalID)
		},
		revert: func() {
			s.mu.Lock()
			if s.gen == gen {
				s.set(pandalID, was)
			}
			s.mu.Unlock()
		},
		settle: func(err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen != gen {
				return
			}
			if err != nil {
				s.errs[pandalID] = errMessage(err)
			} else {
				delete(s.errs, pandalID)
			}
			s.release(pandalID)
		},
	})
	if err != nil {
		failed := s.msg.addFailed
		if was {
			failed = s.msg.removeFailed
		}
		s.log.Warn("membership toggle failed",
			zap.String("pandal_id", pandalID),
			zap.String("user_id", userID),
			zap.Bool("add", !was),
			zap.Error(err))
		s.notify.Alert("Error", failed)
	}
	return err
}

// Has reports whether pandalID is in the set.
func (s *MembershipStore) Has(pandalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[pandalID]
	return ok
}

// Busy reports whether a toggle for pandalID is still in flight.
func (s *MembershipStore) Busy(pandalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy[pandalID] > 0
}

// Err returns the last toggle error for pandalID, or "".
func (s *MembershipStore) Err(pandalID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[pandalID]
}

// IDs returns the member ids in sorted order.
func (s *MembershipStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Initialized reports whether Load has completed since the last Clear.
func (s *MembershipStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// LoadError returns the error recorded by the last failed Load.
func (s *MembershipStore) LoadError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Cleanup drops the per-pandal error once its detail view closes. In-flight
// busy flags are left to their own settle.
func (s *MembershipStore) Cleanup(pandalID string) {
	s.mu.Lock()
	delete(s.errs, pandalID)
	s.mu.Unlock()
}

// Clear empties the store and marks it uninitialized.
func (s *MembershipStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.ids = make(map[string]struct{})
	s.busy = make(map[string]int)
	s.errs = make(map[string]string)
	s.initialized = false
	s.loadErr = ""
}

// Snapshot returns a copy of the store.
func (s *MembershipStore) Snapshot() MembershipSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	busy := make(map[string]struct{}, len(s.busy))
	for id, n := range s.busy {
		if n > 0 {
			busy[id] = struct{}{}
		}
	}
	return MembershipSnapshot{
		IDs:         cloneSet(s.ids),
		Busy:        busy,
		Errors:      cloneErrors(s.errs),
		Initialized: s.initialized,
		LoadError:   s.loadErr,
	}
}

// set and release require s.mu held.
func (s *MembershipStore) set(pandalID string, on bool) {
	if on {
		s.ids[pandalID] = struct{}{}
		return
	}
	delete(s.ids, pandalID)
}

func (s *MembershipStore) release(pandalID string) {
	if n := s.busy[pandalID]; n > 1 {
		s.busy[pandalID] = n - 1
		return
	}
	delete(s.busy, pandalID)
}
