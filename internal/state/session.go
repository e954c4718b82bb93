package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/pandals/internal/backend"
)

// SessionOptions configure NewSession.
type SessionOptions struct {
	Persister       RatingPersister
	Notifier        Notifier
	Logger          *zap.Logger
	FreshnessWindow time.Duration
}

// Session owns every store for one process and ties the user-scoped ones to
// sign-in and sign-out.
type Session struct {
	Pandals   *PandalStore
	Favorites *MembershipStore
	Visited   *MembershipStore
	Ratings   *RatingStore
	Users     *UserStore

	log *zap.Logger

	mu     sync.RWMutex
	userID string
}

// NewSession builds the stores over b. Rating submissions patch the pandal
// cache through the rating store's listener.
func NewSession(b backend.Backend, opts SessionOptions) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		Pandals:   NewPandalStore(b, opts.FreshnessWindow, log.Named("pandals")),
		Favorites: NewFavorites(b, opts.Notifier, log.Named("favorites")),
		Visited:   NewVisited(b, opts.Notifier, log.Named("visited")),
		Ratings:   NewRatingStore(b, opts.Persister, log.Named("ratings")),
		Users:     NewUserStore(b, log.Named("users")),
		log:       log,
	}
	s.Ratings.SetListener(func(id string, rating float64, count int) {
		s.Pandals.UpdateRating(id, rating, count)
	})
	return s
}

// Start loads everything a signed-in user needs. The pandal list loads only
// when nothing has been fetched yet, and ratings only when the cache is not
// already the user's. Loads run in parallel; each records its own failure, and
// the first error is returned once all have settled.
func (s *Session) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}

	s.mu.Lock()
	prev := s.userID
	s.userID = userID
	s.mu.Unlock()

	if prev != "" && prev != userID {
		s.clearUser()
	}
	s.log.Info("session start", zap.String("user_id", userID))

	var g errgroup.Group
	if !s.Pandals.Initialized() {
		g.Go(func() error { return IgnoreInFlight(s.Pandals.Load(ctx, false)) })
	}
	g.Go(func() error { return s.Favorites.Load(ctx, userID) })
	g.Go(func() error { return s.Visited.Load(ctx, userID) })
	if !s.Ratings.LoadedFor(userID) {
		g.Go(func() error { return s.Ratings.Load(ctx, userID) })
	}
	return g.Wait()
}

// End clears the user-scoped stores, including the persisted ratings, and
// the detail selection. The pandal cache survives.
func (s *Session) End() error {
	s.mu.Lock()
	userID := s.userID
	s.userID = ""
	s.mu.Unlock()

	s.log.Info("session end", zap.String("user_id", userID))
	return s.clearUser()
}

// Shutdown ends the session and drops the pandal cache.
func (s *Session) Shutdown() error {
	err := s.End()
	s.Pandals.Clear()
	return err
}

// UserID returns the signed-in user, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// ToggleFavorite toggles pandalID for the signed-in user.
func (s *Session) ToggleFavorite(ctx context.Context, pandalID string) error {
	return s.Favorites.Toggle(ctx, pandalID, s.UserID())
}

// ToggleVisited toggles pandalID for the signed-in user.
func (s *Session) ToggleVisited(ctx context.Context, pandalID string) error {
	return s.Visited.Toggle(ctx, pandalID, s.UserID())
}

// Rate submits the signed-in user's rating for pandalID.
func (s *Session) Rate(ctx context.Context, pandalID string, rating int) error {
	return s.Ratings.Submit(ctx, pandalID, rating, s.UserID())
}

func (s *Session) clearUser() error {
	s.Favorites.Clear()
	s.Visited.Clear()
	s.Users.Clear()
	s.Pandals.ClearSelection()
	return s.Ratings.Clear()
}
