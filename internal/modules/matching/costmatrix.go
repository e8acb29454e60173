package matching

import (
	"context"
	"time"

	"ridematch/internal/maps"
	"ridematch/internal/types"
)

// TravelTimes is the travel-time source the engine depends on.
type TravelTimes interface {
	Matrix(ctx context.Context, origins, destinations []types.Point) (maps.Matrix, error)
	Route(ctx context.Context, from, to types.Point) (maps.Leg, error)
}

// costRules selects which feasibility checks apply to a matrix build.
type costRules struct {
	idleThreshold time.Duration
	// enforceIdle is false for the relaxed fallback pass.
	enforceIdle bool
}

// costMatrix is a dense drivers x passengers matrix with the pickup time that
// produced each feasible cost.
type costMatrix struct {
	cost   [][]float64
	pickup [][]time.Time
}

func (m *costMatrix) feasible(i, j int) bool {
	return m.cost[i][j] < Infeasible
}

// buildCostMatrix looks up travel times from every driver's current position
// to every passenger pickup and scores each pair.
func buildCostMatrix(ctx context.Context, tt TravelTimes, states []*DriverState, passengers []Passenger, rules costRules) (*costMatrix, error) {
	origins := make([]types.Point, len(states))
	for i, s := range states {
		origins[i] = s.Location
	}
	dests := make([]types.Point, len(passengers))
	for j, p := range passengers {
		dests[j] = p.Pickup
	}

	legs, err := tt.Matrix(ctx, origins, dests)
	if err != nil {
		return nil, err
	}

	m := &costMatrix{
		cost:   make([][]float64, len(states)),
		pickup: make([][]time.Time, len(states)),
	}
	for i, s := range states {
		m.cost[i] = make([]float64, len(passengers))
		m.pickup[i] = make([]time.Time, len(passengers))
		for j, p := range passengers {
			m.cost[i][j], m.pickup[i][j] = scorePair(*s, p, legs.At(i, j), rules)
		}
	}
	return m, nil
}

// scorePair returns the cost in minutes of serving p with the driver in s
// and the pickup time that cost implies, or Infeasible.
func scorePair(s DriverState, p Passenger, leg maps.Leg, rules costRules) (float64, time.Time) {
	minutes, ok := leg.Minutes()
	if !ok {
		return Infeasible, time.Time{}
	}
	travel := leg.Duration

	pickup := s.NextAvailable.Add(travel)
	if pickup.Before(p.EarliestPickup) {
		pickup = p.EarliestPickup
	}
	if pickup.After(p.LatestPickup) {
		return Infeasible, time.Time{}
	}

	if rules.enforceIdle && s.Trips > 0 {
		departure := pickup.Add(-travel)
		if departure.Sub(s.NextAvailable) > rules.idleThreshold {
			return Infeasible, time.Time{}
		}
	}
	return minutes, pickup
}
