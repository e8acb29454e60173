// README: Dispatch cycle records, persisted driver/passenger rows and the collaborator interfaces.
package dispatch

import (
	"context"
	"errors"
	"time"

	"ridematch/internal/modules/matching"
	"ridematch/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrBusy       = errors.New("dispatch cycle already running")
	// ErrConflict means a driver or passenger changed state between load and
	// commit; the whole commit is rolled back.
	ErrConflict = errors.New("dispatch state conflict")
)

// DriverRecord is a dispatchable driver as stored. Location is nil when the
// driver has never reported a position.
type DriverRecord struct {
	ID            types.ID
	Location      *types.Point
	Status        matching.DriverStatus
	LastDropoffAt *time.Time
}

// DriverUpdate is the position and availability a driver ends the cycle with.
type DriverUpdate struct {
	DriverID    types.ID
	Location    types.Point
	AvailableAt time.Time
}

// CommitBatch is everything one cycle writes.
type CommitBatch struct {
	Assignments []matching.Assignment
	Drivers     []DriverUpdate
}

// Repository loads cycle inputs and commits cycle outputs.
type Repository interface {
	ListAvailableDrivers(ctx context.Context) ([]DriverRecord, error)
	// ListPendingPassengers returns passengers whose earliest pickup falls in
	// [from, to).
	ListPendingPassengers(ctx context.Context, from, to time.Time) ([]matching.Passenger, error)
	Commit(ctx context.Context, batch CommitBatch) error
}

// Notifier tells a driver about the stops assigned in a cycle.
type Notifier interface {
	NotifyDriver(ctx context.Context, driverID types.ID, stops []matching.Assignment) error
}

// Matcher runs the matching engine for one cycle.
type Matcher interface {
	Run(ctx context.Context, in matching.Input) (*matching.Report, error)
}

// Geocoder resolves the depot address for drivers without a position.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

// CycleResult is the outcome of one dispatch cycle.
type CycleResult struct {
	TargetDate string           `json:"target_date"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Committed  bool             `json:"committed"`
	Report     *matching.Report `json:"report"`
}
