// README: Common value objects used across modules.
package types

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether both coordinates are finite and inside WGS84 bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Orb converts to an orb.Point, which is ordered [lng, lat].
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// String renders "lat,lng" with 6 decimals, the form the maps APIs accept.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
