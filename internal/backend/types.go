package backend

import (
	"strings"
	"time"

	"github.com/five82/pandals/internal/geo"
)

// Pandal mirrors a row of the pandals table.
type Pandal struct {
	ID              string   `json:"id"`
	ClubName        string   `json:"clubname"`
	Address         string   `json:"address"`
	Theme           string   `json:"theme"`
	ArtistName      string   `json:"artistname"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Images          []string `json:"images"`
	Rating          *float64 `json:"rating"`
	NumberOfRatings int      `json:"number_of_ratings"`
	SocialLinks     []string `json:"clubsocialmedialinks"`
}

// Key implements geo.Located.
func (p Pandal) Key() string {
	return p.ID
}

// Coordinate returns the pandal's position when both halves are set.
func (p Pandal) Coordinate() (geo.Coordinate, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

// RatingValue returns the aggregate rating, zero when unrated.
func (p Pandal) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// DisplayName falls back to the id for pandals without a club name.
func (p Pandal) DisplayName() string {
	if name := strings.TrimSpace(p.ClubName); name != "" {
		return name
	}
	return p.ID
}

// Clone returns a deep copy.
func (p Pandal) Clone() Pandal {
	dup := p
	dup.Latitude = cloneFloat(p.Latitude)
	dup.Longitude = cloneFloat(p.Longitude)
	dup.Rating = cloneFloat(p.Rating)
	dup.Images = cloneStrings(p.Images)
	dup.SocialLinks = cloneStrings(p.SocialLinks)
	return dup
}

// RatingAggregate is the running average stored on a pandal.
type RatingAggregate struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"number_of_ratings"`
}

// UserRating mirrors a row of user_ratings.
type UserRating struct {
	UserID    string    `json:"user_id"`
	PandalID  string    `json:"pandal_id"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User mirrors a row of the users table.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Age      int    `json:"age,omitempty"`
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	dup := make([]string, len(values))
	copy(dup, values)
	return dup
}
