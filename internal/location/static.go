package location

import (
	"context"
	"errors"

	"github.com/five82/pandals/internal/geo"
)

// Static is a Provider with a fixed position, for terminals without a
// location service. A nil position behaves like a denied permission.
type Static struct {
	Position *geo.Coordinate
}

// NewStatic returns a provider at (lat, lon), or a denying one when ok is false.
func NewStatic(lat, lon float64, ok bool) Static {
	if !ok {
		return Static{}
	}
	return Static{Position: &geo.Coordinate{Latitude: lat, Longitude: lon}}
}

// CheckPermission implements Provider.
func (s Static) CheckPermission(context.Context) (bool, error) {
	return s.Position != nil, nil
}

// RequestPermission implements Provider.
func (s Static) RequestPermission(ctx context.Context) (bool, error) {
	return s.CheckPermission(ctx)
}

// CurrentPosition implements Provider.
func (s Static) CurrentPosition(ctx context.Context) (geo.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geo.Coordinate{}, err
	}
	if s.Position == nil {
		return geo.Coordinate{}, errors.New("no position configured")
	}
	if !s.Position.Valid() {
		return geo.Coordinate{}, errors.New("configured position is out of range")
	}
	return *s.Position, nil
}
