package maps

import (
	"context"
	"errors"
	"time"

	"ridematch/internal/types"
)

var (
	// ErrQuotaExceeded means the call would push daily usage past the quota.
	ErrQuotaExceeded = errors.New("travel-time daily quota exceeded")
	// ErrNoRoute means the routing service answered but had nothing usable.
	ErrNoRoute = errors.New("no route found")
)

// Leg is the travel estimate for one origin/destination pair. A leg with
// Feasible=false cannot be served and must be treated as infeasible by callers.
type Leg struct {
	Duration       time.Duration `json:"duration"`
	DistanceMeters int           `json:"distance_meters"`
	Feasible       bool          `json:"feasible"`
}

// Minutes returns the travel time in minutes and whether the leg is usable.
func (l Leg) Minutes() (float64, bool) {
	if !l.Feasible {
		return 0, false
	}
	return l.Duration.Minutes(), true
}

// Matrix holds legs indexed [origin][destination].
type Matrix [][]Leg

// At returns the leg for origin i and destination j, or an infeasible leg
// when the index is out of range.
func (m Matrix) At(i, j int) Leg {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		return Leg{}
	}
	return m[i][j]
}

// Backend is an external routing service. Implementations do not cache or
// rate limit; Provider does both.
type Backend interface {
	DistanceMatrix(ctx context.Context, origins, destinations []types.Point) (Matrix, error)
	Directions(ctx context.Context, from, to types.Point) (Leg, error)
	Geocode(ctx context.Context, address string) (types.Point, error)
}
