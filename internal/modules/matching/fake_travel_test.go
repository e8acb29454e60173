package matching

import (
	"context"
	"sync"
	"time"

	"ridematch/internal/maps"
	"ridematch/internal/types"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// fakeTravel answers lookups from a minutes function, one km per minute of
// great-circle distance unless overridden.
type fakeTravel struct {
	mu          sync.Mutex
	minutes     func(from, to types.Point) (float64, bool)
	err         error
	onMatrix    func()
	matrixCalls int
	routeCalls  int
}

func newFakeTravel() *fakeTravel {
	return &fakeTravel{}
}

func (f *fakeTravel) leg(from, to types.Point) maps.Leg {
	m, ok := haversineKm(from, to), true
	if f.minutes != nil {
		m, ok = f.minutes(from, to)
	}
	if !ok {
		return maps.Leg{}
	}
	return maps.Leg{
		Duration:       time.Duration(m * float64(time.Minute)),
		DistanceMeters: int(haversineKm(from, to) * 1000),
		Feasible:       true,
	}
}

func (f *fakeTravel) Matrix(ctx context.Context, origins, destinations []types.Point) (maps.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.matrixCalls++
	hook, err := f.onMatrix, f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}

	out := make(maps.Matrix, len(origins))
	for i, o := range origins {
		out[i] = make([]maps.Leg, len(destinations))
		for j, d := range destinations {
			out[i][j] = f.leg(o, d)
		}
	}
	return out, nil
}

func (f *fakeTravel) Route(ctx context.Context, from, to types.Point) (maps.Leg, error) {
	if err := ctx.Err(); err != nil {
		return maps.Leg{}, err
	}
	f.mu.Lock()
	f.routeCalls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return maps.Leg{}, err
	}
	return f.leg(from, to), nil
}

func (f *fakeTravel) calls() (matrix, route int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matrixCalls, f.routeCalls
}

// fixedMinutes makes every pair take m minutes.
func fixedMinutes(m float64) func(from, to types.Point) (float64, bool) {
	return func(from, to types.Point) (float64, bool) { return m, true }
}

func pt(lat, lng float64) types.Point {
	return types.Point{Lat: lat, Lng: lng}
}

func at(minutes float64) time.Time {
	return t0.Add(time.Duration(minutes * float64(time.Minute)))
}
