// Package sqlstore implements backend.Backend directly on the pandal
// database with gorm, for deployments that reach Postgres without the REST
// gateway.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/five82/pandals/internal/backend"
)

// Ensure Store implements backend.Backend at compile time.
var _ backend.Backend = (*Store)(nil)

// Store runs backend operations through gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to Postgres at dsn and configures the pool.
func Open(dsn string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(5)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return New(db), nil
}

// New wraps an open gorm handle of any dialect.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the five tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Pandal{}, &Favorite{}, &Visited{}, &Rating{}, &User{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedPandals upserts pandal rows by id.
func (s *Store) SeedPandals(ctx context.Context, pandals []backend.Pandal) error {
	if len(pandals) == 0 {
		return nil
	}
	rows := make([]Pandal, len(pandals))
	for i, p := range pandals {
		rows[i] = FromBackend(p)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("seed pandals: %w", err)
	}
	return nil
}

// ListPandals returns every pandal ordered by id.
func (s *Store) ListPandals(ctx context.Context) ([]backend.Pandal, error) {
	var rows []Pandal
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pandals: %w", err)
	}
	out := make([]backend.Pandal, len(rows))
	for i, r := range rows {
		out[i] = r.toBackend()
	}
	return out, nil
}

// GetPandal returns one pandal, or backend.ErrNotFound.
func (s *Store) GetPandal(ctx context.Context, id string) (backend.Pandal, error) {
	var row Pandal
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return backend.Pandal{}, notFound("get pandal "+id, err)
	}
	return row.toBackend(), nil
}

// GetPandalRating returns the stored aggregate for a pandal.
func (s *Store) GetPandalRating(ctx context.Context, id string) (backend.RatingAggregate, error) {
	var row Pandal
	err := s.db.WithContext(ctx).Select("rating", "number_of_ratings").Where("id = ?", id).Take(&row).Error
	if err != nil {
		return backend.RatingAggregate{}, notFound("get pandal rating "+id, err)
	}
	agg := backend.RatingAggregate{Count: row.NumberOfRatings}
	if row.Rating != nil {
		agg.Rating = *row.Rating
	}
	return agg, nil
}

// UpdatePandalRating writes a new aggregate.
func (s *Store) UpdatePandalRating(ctx context.Context, id string, rating float64, count int) error {
	res := s.db.WithContext(ctx).Model(&Pandal{}).Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "number_of_ratings": count})
	if res.Error != nil {
		return fmt.Errorf("update pandal rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update pandal rating %s: %w", id, backend.ErrNotFound)
	}
	return nil
}

// ListFavoriteIDs returns the pandal ids the user has favorited.
func (s *Store) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	return s.pluckPandalIDs(ctx, &Favorite{}, userID)
}

// InsertFavorite fails on a duplicate row, like the REST gateway.
func (s *Store) InsertFavorite(ctx context.Context, userID, pandalID string) error {
	row := Favorite{UserID: userID, PandalID: pandalID, CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// DeleteFavorite removes the (user, pandal) row.
func (s *Store) DeleteFavorite(ctx context.Context, userID, pandalID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ? AND pandal_id = ?", userID, pandalID).Delete(&Favorite{}).Error
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// ListVisitedIDs returns the pandal ids the user has visited.
func (s *Store) ListVisitedIDs(ctx context.Context, userID string) ([]string, error) {
	return s.pluckPandalIDs(ctx, &Visited{}, userID)
}

// UpsertVisited ignores an existing row.
func (s *Store) UpsertVisited(ctx context.Context, userID, pandalID string) error {
	row := Visited{UserID: userID, PandalID: pandalID, CreatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: compositeKey, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert visited: %w", err)
	}
	return nil
}

// DeleteVisited removes the (user, pandal) row.
func (s *Store) DeleteVisited(ctx context.Context, userID, pandalID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ? AND pandal_id = ?", userID, pandalID).Delete(&Visited{}).Error
	if err != nil {
		return fmt.Errorf("delete visited: %w", err)
	}
	return nil
}

// ListUserRatings returns the user's ratings keyed by pandal id.
func (s *Store) ListUserRatings(ctx context.Context, userID string) (map[string]int, error) {
	var rows []Rating
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list user ratings: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.PandalID] = r.Rating
	}
	return out, nil
}

// GetUserRating returns the user's rating for a pandal and whether a row exists.
func (s *Store) GetUserRating(ctx context.Context, userID, pandalID string) (int, bool, error) {
	var row Rating
	err := s.db.WithContext(ctx).Where("user_id = ? AND pandal_id = ?", userID, pandalID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get user rating: %w", err)
	}
	return row.Rating, true, nil
}

// UpsertUserRating replaces the rating and timestamp of an existing row.
func (s *Store) UpsertUserRating(ctx context.Context, r backend.UserRating) error {
	row := Rating{UserID: r.UserID, PandalID: r.PandalID, Rating: r.Rating, UpdatedAt: r.UpdatedAt}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = s.now().UTC()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: compositeKey, DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"})}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert user rating: %w", err)
	}
	return nil
}

// InsertUser creates the profile row and returns it as stored.
func (s *Store) InsertUser(ctx context.Context, u backend.User) (backend.User, error) {
	row := User{ID: u.ID, Email: u.Email, FullName: u.FullName, Gender: u.Gender, Age: u.Age}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.User{}, fmt.Errorf("insert user: %w", err)
	}
	return backend.User{ID: row.ID, Email: row.Email, FullName: row.FullName, Gender: row.Gender, Age: row.Age}, nil
}

var compositeKey = []clause.Column{{Name: "user_id"}, {Name: "pandal_id"}}

func (s *Store) pluckPandalIDs(ctx context.Context, model any, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(model).Where("user_id = ?", userID).Order("pandal_id").Pluck("pandal_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list pandal ids: %w", err)
	}
	return ids, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, backend.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
