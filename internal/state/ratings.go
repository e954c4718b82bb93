package state

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/prefs"
)

// RatingStatus tracks where a locally chosen rating stands against the backend.
type RatingStatus int

const (
	// RatingSynced means the local value was the last one accepted remotely.
	RatingSynced RatingStatus = iota
	// RatingPending means a submission is in flight.
	RatingPending
	// RatingFailed means the last submission was rejected. The chosen value is
	// kept so the picker does not jump back.
	RatingFailed
)

func (s RatingStatus) String() string {
	switch s {
	case RatingPending:
		return "pending"
	case RatingFailed:
		return "failed"
	default:
		return "synced"
	}
}

// RatingBackend is what the rating store needs from the backend.
type RatingBackend interface {
	backend.RatingSource
	GetPandalRating(ctx context.Context, id string) (backend.RatingAggregate, error)
	UpdatePandalRating(ctx context.Context, id string, rating float64, count int) error
}

// RatingPersister keeps the user's ratings across restarts.
type RatingPersister interface {
	Load() (prefs.Ratings, error)
	Save(prefs.Ratings) error
	Clear() error
}

// AggregateListener receives a pandal's new aggregate after a submission.
type AggregateListener func(pandalID string, rating float64, count int)

// RatingSnapshot is a point-in-time copy of the rating store.
type RatingSnapshot struct {
	UserID     string
	Ratings    map[string]int
	Status     map[string]RatingStatus
	Submitting map[string]struct{}
	Errors     map[string]string
	Loaded     bool
}

// RatingStore caches the signed-in user's own ratings and submits new ones.
type RatingStore struct {
	src     RatingBackend
	persist RatingPersister
	log     *zap.Logger
	now     func() time.Time

	// saveMu orders file writes against Clear.
	saveMu sync.Mutex

	mu         sync.RWMutex
	gen        uint64 // bumped on Clear and on change of owner
	userID     string
	ratings    map[string]int // value shown in the picker
	synced     map[string]int // last values accepted remotely
	status     map[string]RatingStatus
	submitting map[string]int
	errs       map[string]string
	loaded     bool
	listener   AggregateListener
}

// NewRatingStore builds the store and seeds it from persist, if set.
func NewRatingStore(src RatingBackend, persist RatingPersister, log *zap.Logger) *RatingStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RatingStore{
		src:        src,
		persist:    persist,
		log:        log,
		now:        time.Now,
		ratings:    make(map[string]int),
		synced:     make(map[string]int),
		status:     make(map[string]RatingStatus),
		submitting: make(map[string]int),
		errs:       make(map[string]string),
	}
	if persist != nil {
		cached, err := persist.Load()
		if err != nil {
			log.Warn("read cached ratings", zap.Error(err))
		} else {
			s.userID = cached.UserID
			s.loaded = cached.Loaded
			for id, v := range cached.Ratings {
				s.ratings[id] = v
				s.synced[id] = v
			}
		}
	}
	return s
}

// SetListener registers the callback invoked after a successful submission.
func (s *RatingStore) SetListener(fn AggregateListener) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// NextAggregate recomputes a pandal's running average. An update swaps the
// user's old contribution for the new one and keeps the count; a first rating
// adds a contribution and bumps the count. The result is rounded to 2 decimals.
func NextAggregate(isUpdate bool, current float64, count, oldRating, newRating int) (float64, int) {
	total := current * float64(count)
	var avg float64
	if isUpdate {
		if count > 0 {
			avg = (total - float64(oldRating) + float64(newRating)) / float64(count)
		} else {
			avg = float64(newRating)
		}
	} else {
		count++
		avg = (total + float64(newRating)) / float64(count)
	}
	return math.Round(avg*100) / 100, count
}

// Submit records rating for pandalID and pushes it to the backend: the user's
// prior row decides insert versus update, the aggregate is recomputed from
// the pandal's current values, written back, and the user's row is upserted.
// The chosen value shows immediately and is not reverted on failure; the
// status moves to RatingFailed and the error is kept for pandalID.
func (s *RatingStore) Submit(ctx context.Context, pandalID string, rating int, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating %d out of range 1-5", rating)
	}

	var (
		agg     backend.RatingAggregate
		gen     uint64
		current bool
	)
	err := runOptimistic(ctx, mutation{
		apply: func() {
			s.mu.Lock()
			s.ownLocked(userID)
			gen = s.gen
			s.ratings[pandalID] = rating
			s.status[pandalID] = RatingPending
			s.submitting[pandalID]++
			delete(s.errs, pandalID)
			s.mu.Unlock()
		},
		commit: func(ctx context.Context) error {
			var err error
			agg, err = s.commit(ctx, pandalID, rating, userID)
			return err
		},
		settle: func(err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			// Signed out or switched user while the call was out.
			if current = s.gen == gen; !current {
				return
			}
			if n := s.submitting[pandalID]; n > 1 {
				s.submitting[pandalID] = n - 1
			} else {
				delete(s.submitting, pandalID)
			}
			if err != nil {
				s.status[pandalID] = RatingFailed
				s.errs[pandalID] = errMessage(err)
			} else {
				s.synced[pandalID] = rating
				s.status[pandalID] = RatingSynced
			}
		},
	})
	if err != nil {
		s.log.Warn("rating submit failed",
			zap.String("pandal_id", pandalID),
			zap.String("user_id", userID),
			zap.Int("rating", rating),
			zap.Error(err))
		return err
	}

	if current {
		s.save(gen)
	}
	s.mu.RLock()
	fn := s.listener
	s.mu.RUnlock()
	if fn != nil {
		fn(pandalID, agg.Rating, agg.Count)
	}
	return nil
}

func (s *RatingStore) commit(ctx context.Context, pandalID string, rating int, userID string) (backend.RatingAggregate, error) {
	old, isUpdate, err := s.src.GetUserRating(ctx, userID, pandalID)
	if err != nil {
		return backend.RatingAggregate{}, fmt.Errorf("read existing rating: %w", err)
	}
	current, err := s.src.GetPandalRating(ctx, pandalID)
	if err != nil {
		return backend.RatingAggregate{}, fmt.Errorf("read pandal rating: %w", err)
	}

	next, count := NextAggregate(isUpdate, current.Rating, current.Count, old, rating)
	if err := s.src.UpdatePandalRating(ctx, pandalID, next, count); err != nil {
		return backend.RatingAggregate{}, fmt.Errorf("update pandal rating: %w", err)
	}
	if err := s.src.UpsertUserRating(ctx, backend.UserRating{
		UserID:    userID,
		PandalID:  pandalID,
		Rating:    rating,
		UpdatedAt: s.now().UTC(),
	}); err != nil {
		return backend.RatingAggregate{}, fmt.Errorf("save user rating: %w", err)
	}
	return backend.RatingAggregate{Rating: next, Count: count}, nil
}

// Load replaces the cache with the user's rows. Values cached for another
// user are dropped first. Loaded is set even when the fetch fails, in which
// case the user's current values are kept.
func (s *RatingStore) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.mu.Lock()
	s.ownLocked(userID)
	gen := s.gen
	s.mu.Unlock()

	rows, err := s.src.ListUserRatings(ctx, userID)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Debug("rating load superseded", zap.String("user_id", userID))
		return err
	}
	s.loaded = true
	if err != nil {
		s.mu.Unlock()
		s.log.Error("rating load failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.ratings = make(map[string]int, len(rows))
	s.synced = make(map[string]int, len(rows))
	s.status = make(map[string]RatingStatus)
	for id, v := range rows {
		s.ratings[id] = v
		s.synced[id] = v
	}
	s.mu.Unlock()

	s.save(gen)
	return nil
}

// ownLocked hands the store to userID, dropping any values that belong to
// someone else. Requires s.mu held.
func (s *RatingStore) ownLocked(userID string) {
	if s.userID == userID {
		return
	}
	if s.userID != "" {
		s.log.Info("dropping cached ratings of previous user",
			zap.String("previous", s.userID), zap.String("user_id", userID))
	}
	s.reset()
	s.userID = userID
}

// reset empties every map and bumps the generation. Requires s.mu held.
func (s *RatingStore) reset() {
	s.gen++
	s.userID = ""
	s.ratings = make(map[string]int)
	s.synced = make(map[string]int)
	s.status = make(map[string]RatingStatus)
	s.submitting = make(map[string]int)
	s.errs = make(map[string]string)
	s.loaded = false
}

// LoadedFor reports whether the cache already holds userID's ratings.
func (s *RatingStore) LoadedFor(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && userID != "" && s.userID == userID
}

// Loaded reports whether Load has run since the last Clear.
func (s *RatingStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Get returns the user's rating for pandalID, or 0 when unrated.
func (s *RatingStore) Get(pandalID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratings[pandalID]
}

// Status returns the sync status of the rating for pandalID.
func (s *RatingStore) Status(pandalID string) RatingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[pandalID]
}

// Err returns the last submission error for pandalID, or "".
func (s *RatingStore) Err(pandalID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[pandalID]
}

// Submitting reports whether a submission for pandalID is in flight.
func (s *RatingStore) Submitting(pandalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting[pandalID] > 0
}

// Cleanup forgets the error for pandalID.
func (s *RatingStore) Cleanup(pandalID string) {
	s.mu.Lock()
	delete(s.errs, pandalID)
	s.mu.Unlock()
}

// Clear empties the store and removes the persisted cache.
func (s *RatingStore) Clear() error {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.persist.Clear(); err != nil {
		s.log.Warn("clear cached ratings", zap.Error(err))
		return err
	}
	return nil
}

// Snapshot returns a copy of the store.
func (s *RatingStore) Snapshot() RatingSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ratings := make(map[string]int, len(s.ratings))
	for id, v := range s.ratings {
		ratings[id] = v
	}
	status := make(map[string]RatingStatus, len(s.status))
	for id, v := range s.status {
		status[id] = v
	}
	submitting := make(map[string]struct{}, len(s.submitting))
	for id := range s.submitting {
		submitting[id] = struct{}{}
	}
	return RatingSnapshot{
		UserID:     s.userID,
		Ratings:    ratings,
		Status:     status,
		Submitting: submitting,
		Errors:     cloneErrors(s.errs),
		Loaded:     s.loaded,
	}
}

// save persists the synced values only, so a failed submission does not
// survive a restart. Nothing is written once the store has moved past gen.
func (s *RatingStore) save(gen uint64) {
	if s.persist == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	if s.gen != gen {
		s.mu.RUnlock()
		return
	}
	out := prefs.Ratings{UserID: s.userID, Loaded: s.loaded, Ratings: make(map[string]int, len(s.synced))}
	for id, v := range s.synced {
		out.Ratings[id] = v
	}
	s.mu.RUnlock()

	if err := s.persist.Save(out); err != nil {
		s.log.Warn("persist ratings", zap.String("user_id", out.UserID), zap.Error(err))
	}
}
