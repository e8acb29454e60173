package matching

import (
	"context"
	"testing"
	"time"

	"ridematch/internal/maps"
)

func legOf(minutes float64) maps.Leg {
	return maps.Leg{Duration: time.Duration(minutes * float64(time.Minute)), Feasible: true}
}

func strict() costRules {
	return costRules{idleThreshold: 30 * time.Minute, enforceIdle: true}
}

func TestScorePair_ClampsToEarliestPickup(t *testing.T) {
	s := DriverState{NextAvailable: t0}
	p := Passenger{EarliestPickup: at(10), LatestPickup: at(20), RideDuration: 15 * time.Minute}

	cost, pickup := scorePair(s, p, legOf(2), strict())
	if cost != 2 {
		t.Errorf("cost = %v, want 2", cost)
	}
	if !pickup.Equal(at(10)) {
		t.Errorf("pickup = %v, want %v", pickup, at(10))
	}
}

func TestScorePair_LateArrivalInfeasible(t *testing.T) {
	s := DriverState{NextAvailable: t0}
	p := Passenger{EarliestPickup: at(300), LatestPickup: at(305), RideDuration: time.Minute}

	for _, rules := range []costRules{strict(), {}} {
		if cost, _ := scorePair(s, p, legOf(360), rules); cost != Infeasible {
			t.Errorf("rules %+v: cost = %v, want Infeasible", rules, cost)
		}
	}
}

func TestScorePair_InfeasibleLeg(t *testing.T) {
	s := DriverState{NextAvailable: t0}
	p := Passenger{EarliestPickup: t0, LatestPickup: at(60), RideDuration: time.Minute}

	if cost, _ := scorePair(s, p, maps.Leg{}, costRules{}); cost != Infeasible {
		t.Errorf("cost = %v, want Infeasible", cost)
	}
}

func TestScorePair_IdleRule(t *testing.T) {
	tests := []struct {
		name     string
		trips    int
		earliest float64
		rules    costRules
		want     bool
	}{
		{"fresh driver may wait", 0, 60, strict(), true},
		{"idle too long after a trip", 1, 60, strict(), false},
		{"idle exactly at threshold", 1, 35, strict(), true},
		{"short idle after a trip", 1, 20, strict(), true},
		{"relaxed pass ignores idle", 1, 60, costRules{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DriverState{NextAvailable: t0, Trips: tt.trips}
			p := Passenger{EarliestPickup: at(tt.earliest), LatestPickup: at(tt.earliest + 10), RideDuration: time.Minute}

			cost, pickup := scorePair(s, p, legOf(5), tt.rules)
			if got := cost < Infeasible; got != tt.want {
				t.Fatalf("feasible = %v, want %v (cost %v)", got, tt.want, cost)
			}
			if tt.want && !pickup.Equal(at(tt.earliest)) {
				t.Errorf("pickup = %v, want %v", pickup, at(tt.earliest))
			}
		})
	}
}

func TestBuildCostMatrix(t *testing.T) {
	tt := newFakeTravel()
	states := []*DriverState{
		{DriverID: "d1", Location: pt(0, 0), NextAvailable: t0},
		{DriverID: "d2", Location: pt(10, 10), NextAvailable: t0},
	}
	passengers := []Passenger{
		{ID: "p1", Pickup: pt(0, 0.01), Dropoff: pt(0, 0.1), EarliestPickup: t0, LatestPickup: at(30), RideDuration: 10 * time.Minute},
		{ID: "p2", Pickup: pt(0, 0.02), Dropoff: pt(0, 0.1), EarliestPickup: t0, LatestPickup: at(30), RideDuration: 10 * time.Minute},
	}

	cm, err := buildCostMatrix(context.Background(), tt, states, passengers, strict())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(cm.cost) != 2 || len(cm.cost[0]) != 2 {
		t.Fatalf("dims = %dx%d", len(cm.cost), len(cm.cost[0]))
	}
	if !cm.feasible(0, 0) || !cm.feasible(0, 1) {
		t.Errorf("nearby driver should be feasible: %v", cm.cost[0])
	}
	if cm.feasible(1, 0) || cm.feasible(1, 1) {
		t.Errorf("distant driver should be infeasible: %v", cm.cost[1])
	}
	if cm.cost[0][0] >= cm.cost[0][1] {
		t.Errorf("closer pickup should cost less: %v", cm.cost[0])
	}
	if m, _ := tt.calls(); m != 1 {
		t.Errorf("matrix calls = %d, want 1", m)
	}
}
