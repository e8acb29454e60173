// README: Matching inputs, per-cycle driver state and produced assignments.
package matching

import (
	"time"

	"ridematch/internal/maps"
	"ridematch/internal/types"
)

// Infeasible is the cost sentinel for a driver/passenger pair that cannot be
// served. It is finite so the solver can treat every cell uniformly.
const Infeasible = 1e9

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverEnRoute   DriverStatus = "en_route"
)

type Driver struct {
	ID       types.ID
	Location types.Point
	Status   DriverStatus
	// LastDropoffAt is the persisted end of the driver's previous trip, if any.
	LastDropoffAt *time.Time
}

type Passenger struct {
	ID             types.ID
	Pickup         types.Point
	Dropoff        types.Point
	EarliestPickup time.Time
	LatestPickup   time.Time
	RideDuration   time.Duration
}

type AssignmentKind string

const (
	KindPrimary  AssignmentKind = "primary"
	KindCarpool  AssignmentKind = "carpool"
	KindFallback AssignmentKind = "fallback"
)

const StatusConfirmed = "confirmed"

type Assignment struct {
	ID               string         `json:"id"`
	DriverID         types.ID       `json:"driver_id"`
	PassengerID      types.ID       `json:"passenger_id"`
	EstimatedPickup  time.Time      `json:"estimated_pickup"`
	EstimatedDropoff time.Time      `json:"estimated_dropoff"`
	Status           string         `json:"status"`
	Kind             AssignmentKind `json:"kind"`
	// Sequence orders a driver's stops within the cycle, starting at 1.
	Sequence int `json:"sequence"`
	Round    int `json:"round"`
}

// DriverState is the mutable, cycle-scoped view of a driver.
type DriverState struct {
	DriverID      types.ID
	Location      types.Point
	NextAvailable time.Time
	Trips         int
}

// Config holds the matching thresholds.
type Config struct {
	IdleThreshold   time.Duration
	CarpoolRadiusKm float64
	CarpoolDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleThreshold:   30 * time.Minute,
		CarpoolRadiusKm: 1.0,
		CarpoolDelay:    10 * time.Minute,
	}
}

// Input is everything one cycle needs.
type Input struct {
	Start      time.Time
	Drivers    []Driver
	Passengers []Passenger
}

// Exclusion records an input record dropped as malformed.
type Exclusion struct {
	ID     types.ID `json:"id"`
	Kind   string   `json:"kind"`
	Reason string   `json:"reason"`
}

// Report is the outcome of one cycle.
type Report struct {
	Assignments []Assignment `json:"assignments"`
	Unassigned  []types.ID   `json:"unassigned"`
	Excluded    []Exclusion  `json:"excluded"`
	Rounds      int          `json:"rounds"`
	// Interrupted is set when the cycle stopped early on cancellation; the
	// assignments made up to that point are kept.
	Interrupted bool       `json:"interrupted"`
	TravelTime  maps.Stats `json:"travel_time"`
}
