package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/five82/pandals/internal/backend"
)

// sqliteSchema mirrors the Postgres tables closely enough for the store's
// queries. Array columns hold pq's text encoding.
var sqliteSchema = []string{
	`CREATE TABLE pandals (
		id TEXT PRIMARY KEY,
		clubname TEXT, address TEXT, theme TEXT, artistname TEXT,
		latitude REAL, longitude REAL,
		images TEXT, rating REAL,
		number_of_ratings INTEGER NOT NULL DEFAULT 0,
		clubsocialmedialinks TEXT)`,
	`CREATE TABLE user_favourites (user_id TEXT, pandal_id TEXT, created_at DATETIME, PRIMARY KEY (user_id, pandal_id))`,
	`CREATE TABLE user_visited (user_id TEXT, pandal_id TEXT, created_at DATETIME, PRIMARY KEY (user_id, pandal_id))`,
	`CREATE TABLE user_ratings (user_id TEXT, pandal_id TEXT, rating INTEGER NOT NULL, updated_at DATETIME, PRIMARY KEY (user_id, pandal_id))`,
	`CREATE TABLE users (id TEXT PRIMARY KEY, email TEXT, full_name TEXT, gender TEXT, age INTEGER)`,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pandals.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	s := New(db)
	s.now = func() time.Time { return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.SeedPandals(context.Background(), []backend.Pandal{
		{
			ID: "p1", ClubName: "Sreebhumi", Latitude: ptr(22.58), Longitude: ptr(88.41),
			Images: []string{"https://img/1.jpg", "https://img/2.jpg"}, Rating: ptr(4.0), NumberOfRatings: 2,
			SocialLinks: []string{"https://instagram.com/sreebhumi"},
		},
		{ID: "p2", ClubName: "Bagbazar"},
	})
	if err != nil {
		t.Fatalf("SeedPandals: %v", err)
	}
}

func TestStore_Pandals(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	all, err := s.ListPandals(ctx)
	if err != nil {
		t.Fatalf("ListPandals: %v", err)
	}
	if len(all) != 2 || all[0].ID != "p1" {
		t.Fatalf("ListPandals() = %+v", all)
	}
	if len(all[0].Images) != 2 || all[0].Images[1] != "https://img/2.jpg" {
		t.Fatalf("Images = %v", all[0].Images)
	}
	if _, ok := all[1].Coordinate(); ok {
		t.Fatalf("p2 has a coordinate, want none")
	}

	if _, err := s.GetPandal(ctx, "nope"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("GetPandal(nope) error = %v, want ErrNotFound", err)
	}

	agg, err := s.GetPandalRating(ctx, "p1")
	if err != nil || agg.Rating != 4.0 || agg.Count != 2 {
		t.Fatalf("GetPandalRating(p1) = %+v, %v", agg, err)
	}
	if err := s.UpdatePandalRating(ctx, "p1", 4.33, 3); err != nil {
		t.Fatalf("UpdatePandalRating: %v", err)
	}
	p, err := s.GetPandal(ctx, "p1")
	if err != nil || p.RatingValue() != 4.33 || p.NumberOfRatings != 3 {
		t.Fatalf("GetPandal(p1) = %+v, %v", p, err)
	}
	if err := s.UpdatePandalRating(ctx, "nope", 1, 1); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("UpdatePandalRating(nope) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Favorites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertFavorite(ctx, "u1", "p2"); err != nil {
		t.Fatalf("InsertFavorite: %v", err)
	}
	if err := s.InsertFavorite(ctx, "u1", "p1"); err != nil {
		t.Fatalf("InsertFavorite: %v", err)
	}
	if err := s.InsertFavorite(ctx, "u1", "p1"); err == nil {
		t.Fatalf("duplicate InsertFavorite error = nil")
	}
	ids, err := s.ListFavoriteIDs(ctx, "u1")
	if err != nil || len(ids) != 2 || ids[0] != "p1" {
		t.Fatalf("ListFavoriteIDs() = %v, %v", ids, err)
	}
	if err := s.DeleteFavorite(ctx, "u1", "p1"); err != nil {
		t.Fatalf("DeleteFavorite: %v", err)
	}
	if ids, _ := s.ListFavoriteIDs(ctx, "u1"); len(ids) != 1 {
		t.Fatalf("after delete ids = %v", ids)
	}
	if ids, _ := s.ListFavoriteIDs(ctx, "u2"); len(ids) != 0 {
		t.Fatalf("other user ids = %v", ids)
	}
}

func TestStore_VisitedIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.UpsertVisited(ctx, "u1", "p1"); err != nil {
			t.Fatalf("UpsertVisited #%d: %v", i, err)
		}
	}
	ids, err := s.ListVisitedIDs(ctx, "u1")
	if err != nil || len(ids) != 1 {
		t.Fatalf("ListVisitedIDs() = %v, %v", ids, err)
	}
	if err := s.DeleteVisited(ctx, "u1", "p1"); err != nil {
		t.Fatalf("DeleteVisited: %v", err)
	}
	if ids, _ := s.ListVisitedIDs(ctx, "u1"); len(ids) != 0 {
		t.Fatalf("after delete ids = %v", ids)
	}
}

func TestStore_UserRatings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, found, err := s.GetUserRating(ctx, "u1", "p1"); err != nil || found {
		t.Fatalf("GetUserRating on empty = found %v, err %v", found, err)
	}
	if err := s.UpsertUserRating(ctx, backend.UserRating{UserID: "u1", PandalID: "p1", Rating: 5}); err != nil {
		t.Fatalf("UpsertUserRating: %v", err)
	}
	if err := s.UpsertUserRating(ctx, backend.UserRating{UserID: "u1", PandalID: "p1", Rating: 3}); err != nil {
		t.Fatalf("UpsertUserRating update: %v", err)
	}
	v, found, err := s.GetUserRating(ctx, "u1", "p1")
	if err != nil || !found || v != 3 {
		t.Fatalf("GetUserRating() = %d, %v, %v, want 3 true nil", v, found, err)
	}
	all, err := s.ListUserRatings(ctx, "u1")
	if err != nil || len(all) != 1 || all["p1"] != 3 {
		t.Fatalf("ListUserRatings() = %v, %v", all, err)
	}
}

func TestStore_InsertUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.InsertUser(ctx, backend.User{ID: "u1", FullName: "Asha Roy", Age: 29, Gender: "female"})
	if err != nil || u.FullName != "Asha Roy" || u.Age != 29 {
		t.Fatalf("InsertUser() = %+v, %v", u, err)
	}
	if _, err := s.InsertUser(ctx, backend.User{ID: "u1", FullName: "again"}); err == nil {
		t.Fatalf("duplicate InsertUser error = nil")
	}
}
