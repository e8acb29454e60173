package matching

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"ridematch/internal/types"
)

// haversineKm returns the great-circle distance between two points in km.
func haversineKm(a, b types.Point) float64 {
	return geo.DistanceHaversine(a.Orb(), b.Orb()) / 1000
}

// ahead reports whether p lies on the forward side of the route start->end,
// using the sign of the dot product of the two displacement vectors in
// lng/lat space.
func ahead(start, end, p types.Point) bool {
	s := start.Orb()
	route := sub(end.Orb(), s)
	off := sub(p.Orb(), s)
	return route[0]*off[0]+route[1]*off[1] > 0
}

func sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}
