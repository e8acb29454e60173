package matching

import (
	"context"
	"time"

	"ridematch/internal/types"
)

// carpoolRoute is the leg a driver was just dispatched on.
type carpoolRoute struct {
	start  types.Point // driver position before the primary pickup
	end    types.Point // primary passenger dropoff
	pickup time.Time   // primary pickup time
}

// augment chains extra passengers onto a freshly dispatched driver. It scans
// passengers in input order and takes the first candidate that passes every
// check, then continues scanning from the driver's new position. Accepted
// passengers are marked in consumed.
func (s *Service) augment(ctx context.Context, st *DriverState, route carpoolRoute, passengers []Passenger, consumed map[types.ID]bool, round int) ([]Assignment, error) {
	var out []Assignment
	for _, c := range passengers {
		if consumed[c.ID] {
			continue
		}
		if !s.carpoolCandidate(route, c) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return out, err
		}
		leg, err := s.tt.Route(ctx, st.Location, c.Pickup)
		if err != nil {
			return out, err
		}
		if !leg.Feasible {
			continue
		}
		pickup := st.NextAvailable.Add(leg.Duration)
		if pickup.Before(c.EarliestPickup) {
			pickup = c.EarliestPickup
		}
		if pickup.After(c.LatestPickup) {
			continue
		}

		a := s.assign(st, c, pickup, KindCarpool, round)
		consumed[c.ID] = true
		out = append(out, a)
	}
	return out, nil
}

// carpoolCandidate applies the geometric and timing filters that need no
// travel-time lookup.
func (s *Service) carpoolCandidate(route carpoolRoute, c Passenger) bool {
	if haversineKm(route.start, c.Pickup) > s.cfg.CarpoolRadiusKm {
		return false
	}
	delay := c.EarliestPickup.Sub(route.pickup)
	if delay < 0 || delay > s.cfg.CarpoolDelay {
		return false
	}
	return ahead(route.start, route.end, c.Pickup)
}
