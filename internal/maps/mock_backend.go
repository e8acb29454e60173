package maps

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geo"

	"ridematch/internal/types"
)

// MockBackend substitutes great-circle distance at a constant speed for real
// routing. It is deterministic and makes no network calls.
type MockBackend struct {
	speedKmh float64
	places   map[string]types.Point
	calls    atomic.Int64
}

// NewMockBackend returns a mock travelling at speedKmh. Known addresses can
// be registered for Geocode; lookups are case-insensitive.
func NewMockBackend(speedKmh float64, places map[string]types.Point) *MockBackend {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	m := &MockBackend{speedKmh: speedKmh, places: make(map[string]types.Point, len(places))}
	for k, v := range places {
		m.places[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return m
}

func (m *MockBackend) DistanceMatrix(ctx context.Context, origins, destinations []types.Point) (Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls.Add(1)
	out := make(Matrix, len(origins))
	for i, o := range origins {
		out[i] = make([]Leg, len(destinations))
		for j, d := range destinations {
			out[i][j] = m.leg(o, d)
		}
	}
	return out, nil
}

func (m *MockBackend) Directions(ctx context.Context, from, to types.Point) (Leg, error) {
	if err := ctx.Err(); err != nil {
		return Leg{}, err
	}
	m.calls.Add(1)
	return m.leg(from, to), nil
}

func (m *MockBackend) Geocode(ctx context.Context, address string) (types.Point, error) {
	if err := ctx.Err(); err != nil {
		return types.Point{}, err
	}
	m.calls.Add(1)
	p, ok := m.places[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return types.Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoRoute)
	}
	return p, nil
}

// Calls is the number of backend requests served.
func (m *MockBackend) Calls() int64 {
	return m.calls.Load()
}

func (m *MockBackend) leg(from, to types.Point) Leg {
	meters := geo.DistanceHaversine(from.Orb(), to.Orb())
	hours := meters / 1000 / m.speedKmh
	return Leg{
		Duration:       time.Duration(hours * float64(time.Hour)).Round(time.Second),
		DistanceMeters: int(meters + 0.5),
		Feasible:       true,
	}
}
