// README: Dispatch store backed by PostgreSQL; commits a cycle in one transaction.
package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridematch/internal/modules/matching"
	"ridematch/internal/types"
)

const (
	passengerPending  = "pending"
	passengerAssigned = "assigned"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListAvailableDrivers(ctx context.Context) ([]DriverRecord, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, lat, lng, status, last_dropoff_at
        FROM drivers
        WHERE status = $1
        ORDER BY id`, string(matching.DriverAvailable),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DriverRecord
	for rows.Next() {
		var d DriverRecord
		var lat, lng sql.NullFloat64
		var lastDropoff sql.NullTime
		if err := rows.Scan(&d.ID, &lat, &lng, &d.Status, &lastDropoff); err != nil {
			return nil, err
		}
		if lat.Valid && lng.Valid {
			d.Location = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
		}
		if lastDropoff.Valid {
			t := lastDropoff.Time
			d.LastDropoffAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListPendingPassengers(ctx context.Context, from, to time.Time) ([]matching.Passenger, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
               earliest_pickup, latest_pickup, ride_seconds
        FROM passengers
        WHERE status = $1
          AND earliest_pickup >= $2 AND earliest_pickup < $3
        ORDER BY earliest_pickup, id`, passengerPending, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.Passenger
	for rows.Next() {
		var p matching.Passenger
		var earliest, latest sql.NullTime
		var rideSeconds int64
		if err := rows.Scan(
			&p.ID, &p.Pickup.Lat, &p.Pickup.Lng, &p.Dropoff.Lat, &p.Dropoff.Lng,
			&earliest, &latest, &rideSeconds,
		); err != nil {
			return nil, err
		}
		if earliest.Valid {
			p.EarliestPickup = earliest.Time
		}
		if latest.Valid {
			p.LatestPickup = latest.Time
		}
		p.RideDuration = time.Duration(rideSeconds) * time.Second
		out = append(out, p)
	}
	return out, rows.Err()
}

// Commit writes every assignment and driver update in one transaction. Each
// update is guarded on the status the row was loaded with; if any guard
// misses, nothing is written and ErrConflict is returned.
func (s *Store) Commit(ctx context.Context, batch CommitBatch) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, a := range batch.Assignments {
			tag, err := tx.Exec(ctx, `
                UPDATE passengers SET status = $1
                WHERE id = $2 AND status = $3`,
				passengerAssigned, string(a.PassengerID), passengerPending,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return fmt.Errorf("passenger %s: %w", a.PassengerID, ErrConflict)
			}

			if _, err := tx.Exec(ctx, `
                INSERT INTO assignments (
                    id, driver_id, passenger_id, estimated_pickup, estimated_dropoff,
                    status, kind, sequence, round
                ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				a.ID, string(a.DriverID), string(a.PassengerID), a.EstimatedPickup, a.EstimatedDropoff,
				a.Status, string(a.Kind), a.Sequence, a.Round,
			); err != nil {
				return err
			}
		}

		for _, d := range batch.Drivers {
			tag, err := tx.Exec(ctx, `
                UPDATE drivers
                SET status = $1, lat = $2, lng = $3, last_dropoff_at = $4, updated_at = NOW()
                WHERE id = $5 AND status = $6`,
				string(matching.DriverEnRoute), d.Location.Lat, d.Location.Lng, d.AvailableAt,
				string(d.DriverID), string(matching.DriverAvailable),
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return fmt.Errorf("driver %s: %w", d.DriverID, ErrConflict)
			}
		}
		return nil
	})
}
