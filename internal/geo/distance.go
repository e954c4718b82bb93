// Package geo holds the great-circle helpers used to rank pandals by distance.
package geo

import (
	"fmt"
	"math"
	"sort"
)

const (
	earthRadiusKm = 6371

	// DefaultNearestLimit caps Nearest when the caller passes a non-positive limit.
	DefaultNearestLimit = 10

	// UnknownDistance is the display label for items that cannot be ranked.
	UnknownDistance = "Unknown"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Located is anything with a stable key and an optional position.
type Located interface {
	Key() string
	Coordinate() (Coordinate, bool)
}

// Ranked pairs an item with its distance from a reference point.
type Ranked[T Located] struct {
	Item      T
	Distance  float64 // km, two decimals; zero when Known is false
	Formatted string
	Known     bool
}

// DistanceKm returns the haversine distance between two points, rounded to
// two decimal places.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return roundTo(earthRadiusKm*c, 2)
}

// Between is DistanceKm for two coordinates.
func Between(a, b Coordinate) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// FormatDistance renders km as meters below 1km, one decimal below 10km and
// whole kilometers beyond that.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(km)))
	}
}

// Nearest returns up to limit candidates closest to origin. The origin itself
// and candidates without a position are skipped. Ties keep id order.
func Nearest[T Located](origin T, candidates []T, limit int) []Ranked[T] {
	from, ok := origin.Coordinate()
	if !ok {
		return nil
	}
	if limit <= 0 {
		limit = DefaultNearestLimit
	}

	out := make([]Ranked[T], 0, len(candidates))
	for _, c := range candidates {
		if c.Key() == origin.Key() {
			continue
		}
		to, ok := c.Coordinate()
		if !ok {
			continue
		}
		d := Between(from, to)
		out = append(out, Ranked[T]{Item: c, Distance: d, Formatted: FormatDistance(d), Known: true})
	}
	sortByDistance(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Rank computes the distance from origin for every item. Items with a position
// come first in ascending distance; items without one follow in input order
// with an unknown placeholder. A nil origin marks every item unknown.
func Rank[T Located](origin *Coordinate, items []T) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	if origin == nil {
		for _, item := range items {
			out = append(out, unknown(item))
		}
		return out
	}

	var missing []Ranked[T]
	for _, item := range items {
		to, ok := item.Coordinate()
		if !ok {
			missing = append(missing, unknown(item))
			continue
		}
		d := Between(*origin, to)
		out = append(out, Ranked[T]{Item: item, Distance: d, Formatted: FormatDistance(d), Known: true})
	}
	sortByDistance(out)
	return append(out, missing...)
}

func unknown[T Located](item T) Ranked[T] {
	return Ranked[T]{Item: item, Formatted: UnknownDistance}
}

func sortByDistance[T Located](items []Ranked[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		return items[i].Item.Key() < items[j].Item.Key()
	})
}

// Valid reports whether c is inside the usual latitude/longitude bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func roundTo(val float64, places int) float64 {
	ratio := math.Pow(10, float64(places))
	return math.Round(val*ratio) / ratio
}
