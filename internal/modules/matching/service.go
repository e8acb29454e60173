// README: Matching service runs one dispatch cycle: rounds of min-cost matching with carpool chaining, then a relaxed fallback pass.
package matching

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ridematch/internal/types"
)

type Service struct {
	tt    TravelTimes
	cfg   Config
	newID func() string
}

func NewService(tt TravelTimes, cfg Config) *Service {
	return &Service{tt: tt, cfg: cfg, newID: uuid.NewString}
}

// cycle is the state owned by a single Run call.
type cycle struct {
	states      []*DriverState
	passengers  []Passenger
	consumed    map[types.ID]bool
	assignments []Assignment
	rounds      int
}

func (c *cycle) remaining() []Passenger {
	out := make([]Passenger, 0, len(c.passengers))
	for _, p := range c.passengers {
		if !c.consumed[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// Run matches drivers to passengers until a round accepts nothing, then
// makes one relaxed fallback pass. On cancellation it stops between rounds
// or before the next travel-time call and returns what it has with
// Report.Interrupted set. Any other error (such as an exhausted travel-time
// quota) is returned alongside the partial report.
func (s *Service) Run(ctx context.Context, in Input) (*Report, error) {
	c, excluded := s.seed(in)
	report := &Report{Excluded: excluded}
	log.Printf("[MATCHING] cycle start=%s drivers=%d passengers=%d excluded=%d",
		in.Start.Format(time.RFC3339), len(c.states), len(c.passengers), len(excluded))

	for {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		remaining := c.remaining()
		if len(remaining) == 0 || len(c.states) == 0 {
			break
		}
		accepted, err := s.round(ctx, c, remaining)
		c.rounds++
		if err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
				break
			}
			return s.finish(c, report), fmt.Errorf("matching round %d: %w", c.rounds, err)
		}
		if accepted == 0 {
			break
		}
	}

	if !report.Interrupted {
		if err := s.fallback(ctx, c); err != nil {
			if ctx.Err() == nil {
				return s.finish(c, report), fmt.Errorf("fallback pass: %w", err)
			}
			report.Interrupted = true
		}
	}
	return s.finish(c, report), nil
}

// round builds and solves one cost matrix and applies every feasible pair,
// chaining carpool passengers onto each newly dispatched driver.
func (s *Service) round(ctx context.Context, c *cycle, remaining []Passenger) (int, error) {
	rules := costRules{idleThreshold: s.cfg.IdleThreshold, enforceIdle: true}
	cm, err := buildCostMatrix(ctx, s.tt, c.states, remaining, rules)
	if err != nil {
		return 0, err
	}

	round := c.rounds + 1
	accepted, chainedTotal := 0, 0
	for _, pr := range Solve(cm.cost) {
		if !cm.feasible(pr.Row, pr.Col) {
			continue
		}
		p := remaining[pr.Col]
		if c.consumed[p.ID] {
			// Already chained onto another driver earlier in this round.
			continue
		}
		st := c.states[pr.Row]
		route := carpoolRoute{start: st.Location, end: p.Dropoff, pickup: cm.pickup[pr.Row][pr.Col]}

		a := s.assign(st, p, cm.pickup[pr.Row][pr.Col], KindPrimary, round)
		c.consumed[p.ID] = true
		c.assignments = append(c.assignments, a)
		accepted++

		chained, err := s.augment(ctx, st, route, c.passengers, c.consumed, round)
		c.assignments = append(c.assignments, chained...)
		chainedTotal += len(chained)
		if err != nil {
			return accepted, err
		}
	}
	log.Printf("[MATCHING] round %d: %d primary, %d carpool, %d passengers left",
		round, accepted, chainedTotal, len(remaining)-accepted-chainedTotal)
	return accepted, nil
}

// assign records a stop for the driver and advances its state to the
// passenger's dropoff.
func (s *Service) assign(st *DriverState, p Passenger, pickup time.Time, kind AssignmentKind, round int) Assignment {
	dropoff := pickup.Add(p.RideDuration)
	st.Trips++
	st.Location = p.Dropoff
	st.NextAvailable = dropoff
	return Assignment{
		ID:               s.newID(),
		DriverID:         st.DriverID,
		PassengerID:      p.ID,
		EstimatedPickup:  pickup,
		EstimatedDropoff: dropoff,
		Status:           StatusConfirmed,
		Kind:             kind,
		Sequence:         st.Trips,
		Round:            round,
	}
}

// seed builds the cycle state, dropping malformed records.
func (s *Service) seed(in Input) (*cycle, []Exclusion) {
	c := &cycle{consumed: make(map[types.ID]bool)}
	var excluded []Exclusion

	seenDrivers := make(map[types.ID]bool, len(in.Drivers))
	for _, d := range in.Drivers {
		reason := ""
		switch {
		case d.ID == "":
			reason = "missing id"
		case seenDrivers[d.ID]:
			reason = "duplicate id"
		case !d.Location.Valid():
			reason = "invalid location"
		}
		if reason != "" {
			log.Printf("[MATCHING] excluding driver %q: %s", d.ID, reason)
			excluded = append(excluded, Exclusion{ID: d.ID, Kind: "driver", Reason: reason})
			continue
		}
		seenDrivers[d.ID] = true
		next := in.Start
		if d.LastDropoffAt != nil && d.LastDropoffAt.After(next) {
			next = *d.LastDropoffAt
		}
		c.states = append(c.states, &DriverState{DriverID: d.ID, Location: d.Location, NextAvailable: next})
	}

	seenPassengers := make(map[types.ID]bool, len(in.Passengers))
	for _, p := range in.Passengers {
		reason := validatePassenger(p)
		if reason == "" && seenPassengers[p.ID] {
			reason = "duplicate id"
		}
		if reason != "" {
			log.Printf("[MATCHING] excluding passenger %q: %s", p.ID, reason)
			excluded = append(excluded, Exclusion{ID: p.ID, Kind: "passenger", Reason: reason})
			continue
		}
		seenPassengers[p.ID] = true
		c.passengers = append(c.passengers, p)
	}
	return c, excluded
}

func validatePassenger(p Passenger) string {
	switch {
	case p.ID == "":
		return "missing id"
	case !p.Pickup.Valid():
		return "invalid pickup location"
	case !p.Dropoff.Valid():
		return "invalid dropoff location"
	case p.EarliestPickup.IsZero() || p.LatestPickup.IsZero():
		return "missing pickup window"
	case p.EarliestPickup.After(p.LatestPickup):
		return "earliest pickup after latest pickup"
	case p.RideDuration <= 0:
		return "non-positive ride duration"
	}
	return ""
}

func (s *Service) finish(c *cycle, r *Report) *Report {
	r.Assignments = c.assignments
	r.Rounds = c.rounds
	for _, p := range c.remaining() {
		r.Unassigned = append(r.Unassigned, p.ID)
	}
	log.Printf("[MATCHING] cycle done: rounds=%d assignments=%d unassigned=%d interrupted=%v",
		r.Rounds, len(r.Assignments), len(r.Unassigned), r.Interrupted)
	return r
}
