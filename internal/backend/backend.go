// Package backend describes the relational store the pandal client syncs with.
//
// The store is owned elsewhere (a hosted Postgres behind a PostgREST gateway in
// production). This package only names the operations the client needs on the
// five tables it touches: pandals, user_favourites, user_visited, user_ratings
// and users. Two implementations exist: internal/supabase talks to the REST
// gateway and internal/sqlstore talks to the database directly.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the store rejects the session.
	ErrUnauthorized = errors.New("unauthorized")
)

// Backend is the CRUD surface used by the client-side stores.
type Backend interface {
	PandalSource
	FavoriteSource
	VisitedSource
	RatingSource
	UserSource
}

// PandalSource reads and patches the pandals table.
type PandalSource interface {
	ListPandals(ctx context.Context) ([]Pandal, error)
	GetPandal(ctx context.Context, id string) (Pandal, error)
	GetPandalRating(ctx context.Context, id string) (RatingAggregate, error)
	UpdatePandalRating(ctx context.Context, id string, rating float64, count int) error
}

// FavoriteSource manages user_favourites rows.
type FavoriteSource interface {
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
	InsertFavorite(ctx context.Context, userID, pandalID string) error
	DeleteFavorite(ctx context.Context, userID, pandalID string) error
}

// VisitedSource manages user_visited rows.
type VisitedSource interface {
	ListVisitedIDs(ctx context.Context, userID string) ([]string, error)
	UpsertVisited(ctx context.Context, userID, pandalID string) error
	DeleteVisited(ctx context.Context, userID, pandalID string) error
}

// RatingSource manages user_ratings rows, one per (user, pandal).
type RatingSource interface {
	ListUserRatings(ctx context.Context, userID string) (map[string]int, error)
	GetUserRating(ctx context.Context, userID, pandalID string) (rating int, found bool, err error)
	UpsertUserRating(ctx context.Context, r UserRating) error
}

// UserSource creates user profiles.
type UserSource interface {
	InsertUser(ctx context.Context, u User) (User, error)
}
