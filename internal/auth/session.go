// Package auth exposes the signed-in identity from a provider-issued access
// token. The token is not verified here; the backend checks its signature on
// every request. This package only reads the user id and expiry and tells
// listeners when the identity changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by Token once the access token has expired.
var ErrExpired = errors.New("session expired")

// Claims are the access token fields the client reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Session holds the current access token.
type Session struct {
	now func() time.Time

	mu        sync.RWMutex
	token     string
	userID    string
	email     string
	expiresAt time.Time
	listeners []func(userID string)
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// ParseToken reads the claims of an access token without verifying it.
func ParseToken(token string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), &claims); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, errors.New("access token has no sub claim")
	}
	return claims, nil
}

// SignIn installs token and notifies listeners with the new user id.
func (s *Session) SignIn(token string) error {
	claims, err := ParseToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.userID = claims.Subject
	s.email = claims.Email
	s.expiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(claims.Subject)
	}
	return nil
}

// SignOut drops the token and notifies listeners with an empty user id.
func (s *Session) SignOut() {
	s.mu.Lock()
	wasSignedIn := s.userID != ""
	s.token, s.userID, s.email = "", "", ""
	s.expiresAt = time.Time{}
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	if !wasSignedIn {
		return
	}
	for _, fn := range listeners {
		fn("")
	}
}

// OnChange registers fn to run after every sign-in and sign-out.
func (s *Session) OnChange(fn func(userID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// UserID returns the signed-in user id, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Email returns the email claim of the current token, if any.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Token implements supabase.TokenSource. It returns "" while signed out so
// requests fall back to the anonymous key.
func (s *Session) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", nil
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", ErrExpired
	}
	return s.token, nil
}
