// README: Dispatch service loads a service day, runs the matching engine, commits and notifies drivers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ridematch/internal/clock"
	"ridematch/internal/config"
	"ridematch/internal/maps"
	"ridematch/internal/modules/matching"
	"ridematch/internal/types"
)

// commitTimeout bounds the commit of an interrupted cycle, which runs on a
// context detached from the cancelled caller.
const commitTimeout = 30 * time.Second

// StatsSource exposes travel-time provider counters.
type StatsSource interface {
	Stats() maps.Stats
}

type Deps struct {
	Repo     Repository
	Matcher  Matcher
	Geocoder Geocoder
	Stats    StatsSource
	Notifier Notifier
	Clock    clock.Clock
}

type Service struct {
	repo     Repository
	matcher  Matcher
	geocoder Geocoder
	stats    StatsSource
	notifier Notifier
	clock    clock.Clock
	cfg      config.DispatchConfig

	running sync.Mutex

	mu   sync.Mutex
	last *CycleResult
}

func NewService(deps Deps, cfg config.DispatchConfig) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		repo:     deps.Repo,
		matcher:  deps.Matcher,
		geocoder: deps.Geocoder,
		stats:    deps.Stats,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		cfg:      cfg,
	}
}

// RunCycle dispatches the service day given as YYYY-MM-DD, or the configured
// day when date is empty. Only one cycle runs at a time; a concurrent call
// gets ErrBusy. A cycle interrupted by ctx still commits what it assigned.
func (s *Service) RunCycle(ctx context.Context, date string) (*CycleResult, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	now := s.clock.Now()
	if date == "" {
		date = s.cfg.TargetDate
	}
	target, err := config.ResolveTargetDate(date, now, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	start := target
	if now.After(start) {
		start = now
	}

	records, err := s.repo.ListAvailableDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drivers: %w", err)
	}
	passengers, err := s.repo.ListPendingPassengers(ctx, target, target.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load passengers: %w", err)
	}
	drivers, excluded, err := s.placeDrivers(ctx, records)
	if err != nil {
		return nil, err
	}

	report, err := s.matcher.Run(ctx, matching.Input{Start: start, Drivers: drivers, Passengers: passengers})
	if err != nil {
		return nil, fmt.Errorf("matching: %w", err)
	}
	report.Excluded = append(excluded, report.Excluded...)
	if s.stats != nil {
		report.TravelTime = s.stats.Stats()
	}

	result := &CycleResult{TargetDate: target.Format("2006-01-02"), StartedAt: now, Report: report}
	if len(report.Assignments) > 0 {
		commitCtx := ctx
		if report.Interrupted {
			var cancel context.CancelFunc
			commitCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
			defer cancel()
		}
		if err := s.repo.Commit(commitCtx, buildBatch(report.Assignments, passengers)); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		result.Committed = true
		s.notify(commitCtx, report.Assignments)
	}
	result.FinishedAt = s.clock.Now()

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	log.Printf("[DISPATCH] cycle %s: assigned=%d unassigned=%d excluded=%d rounds=%d interrupted=%v api_calls=%d cache_hits=%d",
		result.TargetDate, len(report.Assignments), len(report.Unassigned), len(report.Excluded),
		report.Rounds, report.Interrupted, report.TravelTime.Calls, report.TravelTime.CacheHits)
	return result, nil
}

// LastResult returns the most recent successful cycle, or nil.
func (s *Service) LastResult() *CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) TravelTimeStats() maps.Stats {
	if s.stats == nil {
		return maps.Stats{}
	}
	return s.stats.Stats()
}

// RunScheduler runs a cycle every ScheduleEvery until ctx is done. It returns
// immediately when no interval is configured.
func (s *Service) RunScheduler(ctx context.Context) {
	if s.cfg.ScheduleEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.ScheduleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunCycle(ctx, ""); err != nil {
				log.Printf("[DISPATCH] scheduled cycle: %v", err)
			}
		}
	}
}

// placeDrivers converts stored drivers to engine input. Drivers that never
// reported a position start at the depot; without a depot they are excluded.
func (s *Service) placeDrivers(ctx context.Context, records []DriverRecord) ([]matching.Driver, []matching.Exclusion, error) {
	var (
		drivers  []matching.Driver
		excluded []matching.Exclusion
		depot    *types.Point
		depotErr error
	)
	for _, r := range records {
		d := matching.Driver{ID: r.ID, Status: r.Status, LastDropoffAt: r.LastDropoffAt}
		if r.Location != nil {
			d.Location = *r.Location
			drivers = append(drivers, d)
			continue
		}

		if depot == nil && depotErr == nil {
			depot, depotErr = s.resolveDepot(ctx)
			if depotErr != nil {
				if errors.Is(depotErr, maps.ErrQuotaExceeded) || ctx.Err() != nil {
					return nil, nil, fmt.Errorf("resolve depot: %w", depotErr)
				}
				log.Printf("[DISPATCH] depot unavailable: %v", depotErr)
			}
		}
		if depot == nil {
			excluded = append(excluded, matching.Exclusion{ID: r.ID, Kind: "driver", Reason: "no known location"})
			continue
		}
		d.Location = *depot
		drivers = append(drivers, d)
	}
	return drivers, excluded, nil
}

func (s *Service) resolveDepot(ctx context.Context) (*types.Point, error) {
	if s.cfg.DepotAddress == "" || s.geocoder == nil {
		return nil, errors.New("no depot address configured")
	}
	p, err := s.geocoder.Geocode(ctx, s.cfg.DepotAddress)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// buildBatch derives each driver's end-of-cycle position from its last stop.
func buildBatch(assignments []matching.Assignment, passengers []matching.Passenger) CommitBatch {
	dropoffs := make(map[types.ID]types.Point, len(passengers))
	for _, p := range passengers {
		dropoffs[p.ID] = p.Dropoff
	}

	lastStop := make(map[types.ID]matching.Assignment)
	for _, a := range assignments {
		if cur, ok := lastStop[a.DriverID]; !ok || a.Sequence > cur.Sequence {
			lastStop[a.DriverID] = a
		}
	}

	batch := CommitBatch{Assignments: assignments}
	for id, a := range lastStop {
		batch.Drivers = append(batch.Drivers, DriverUpdate{
			DriverID:    id,
			Location:    dropoffs[a.PassengerID],
			AvailableAt: a.EstimatedDropoff,
		})
	}
	sort.Slice(batch.Drivers, func(i, j int) bool { return batch.Drivers[i].DriverID < batch.Drivers[j].DriverID })
	return batch
}

// notify sends one message per dispatched driver. Failures are logged only.
func (s *Service) notify(ctx context.Context, assignments []matching.Assignment) {
	if s.notifier == nil {
		return
	}
	stops := make(map[types.ID][]matching.Assignment)
	var order []types.ID
	for _, a := range assignments {
		if _, ok := stops[a.DriverID]; !ok {
			order = append(order, a.DriverID)
		}
		stops[a.DriverID] = append(stops[a.DriverID], a)
	}
	for _, id := range order {
		if err := s.notifier.NotifyDriver(ctx, id, stops[id]); err != nil {
			log.Printf("[DISPATCH] notify driver %s: %v", id, err)
		}
	}
}
