package sqlstore

import (
	"time"

	"github.com/lib/pq"

	"github.com/five82/pandals/internal/backend"
)

// Pandal maps the pandals table.
type Pandal struct {
	ID              string         `gorm:"column:id;primaryKey"`
	ClubName        string         `gorm:"column:clubname"`
	Address         string         `gorm:"column:address"`
	Theme           string         `gorm:"column:theme"`
	ArtistName      string         `gorm:"column:artistname"`
	Latitude        *float64       `gorm:"column:latitude"`
	Longitude       *float64       `gorm:"column:longitude"`
	Images          pq.StringArray `gorm:"column:images;type:text[]"`
	Rating          *float64       `gorm:"column:rating"`
	NumberOfRatings int            `gorm:"column:number_of_ratings;not null"`
	SocialLinks     pq.StringArray `gorm:"column:clubsocialmedialinks;type:text[]"`
}

func (Pandal) TableName() string { return "pandals" }

// Favorite maps user_favourites.
type Favorite struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	PandalID  string    `gorm:"column:pandal_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Favorite) TableName() string { return "user_favourites" }

// Visited maps user_visited.
type Visited struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	PandalID  string    `gorm:"column:pandal_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Visited) TableName() string { return "user_visited" }

// Rating maps user_ratings.
type Rating struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	PandalID  string    `gorm:"column:pandal_id;primaryKey"`
	Rating    int       `gorm:"column:rating;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Rating) TableName() string { return "user_ratings" }

// User maps users.
type User struct {
	ID       string `gorm:"column:id;primaryKey"`
	Email    string `gorm:"column:email"`
	FullName string `gorm:"column:full_name"`
	Gender   string `gorm:"column:gender"`
	Age      int    `gorm:"column:age"`
}

func (User) TableName() string { return "users" }

func (p Pandal) toBackend() backend.Pandal {
	return backend.Pandal{
		ID:              p.ID,
		ClubName:        p.ClubName,
		Address:         p.Address,
		Theme:           p.Theme,
		ArtistName:      p.ArtistName,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Images:          []string(p.Images),
		Rating:          p.Rating,
		NumberOfRatings: p.NumberOfRatings,
		SocialLinks:     []string(p.SocialLinks),
	}
}

// FromBackend converts a backend pandal into a row, for seeding.
func FromBackend(p backend.Pandal) Pandal {
	return Pandal{
		ID:              p.ID,
		ClubName:        p.ClubName,
		Address:         p.Address,
		Theme:           p.Theme,
		ArtistName:      p.ArtistName,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Images:          pq.StringArray(p.Images),
		Rating:          p.Rating,
		NumberOfRatings: p.NumberOfRatings,
		SocialLinks:     pq.StringArray(p.SocialLinks),
	}
}
