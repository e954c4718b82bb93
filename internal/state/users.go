package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/pandals/internal/backend"
)

// UserSnapshot is a copy of the profile state.
type UserSnapshot struct {
	User       *backend.User
	Submitting bool
	Error      string
}

// UserStore holds the signed-in user's profile.
type UserStore struct {
	src backend.UserSource
	log *zap.Logger

	mu         sync.RWMutex
	user       *backend.User
	submitting bool
	err        string
}

// NewUserStore builds an empty profile store.
func NewUserStore(src backend.UserSource, log *zap.Logger) *UserStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserStore{src: src, log: log}
}

// Create inserts the profile row and keeps the stored representation.
func (s *UserStore) Create(ctx context.Context, u backend.User) (backend.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return backend.User{}, ErrNoUser
	}
	if strings.TrimSpace(u.FullName) == "" {
		return backend.User{}, errors.New("full name is required")
	}

	s.mu.Lock()
	s.submitting = true
	s.err = ""
	s.mu.Unlock()

	created, err := s.src.InsertUser(ctx, u)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		s.err = errMessage(err)
		s.log.Warn("create profile failed", zap.String("user_id", u.ID), zap.Error(err))
		return backend.User{}, err
	}
	s.user = &created
	return created, nil
}

// Set replaces the profile without a network call.
func (s *UserStore) Set(u backend.User) {
	s.mu.Lock()
	s.user = &u
	s.err = ""
	s.mu.Unlock()
}

// Clear forgets the profile.
func (s *UserStore) Clear() {
	s.mu.Lock()
	s.user = nil
	s.submitting = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot returns a copy of the profile state.
func (s *UserStore) Snapshot() UserSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := UserSnapshot{Submitting: s.submitting, Error: s.err}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
