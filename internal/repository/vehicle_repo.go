package repository

import (
	"context"
	"fmt"
	"time"

	"parkingapp/internal/db"
)

// LockVehicle takes a transaction scoped advisory lock on Postgres. SQLite
// already serializes write transactions, so there is nothing to take there.
func (q *sqlQueries) LockVehicle(ctx context.Context, vehicleID string) error {
	if !q.postgres() {
		return nil
	}
	if _, err := q.exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, vehicleID); err != nil {
		return fmt.Errorf("lock vehicle %s: %w", vehicleID, err)
	}
	return nil
}

func (q *sqlQueries) GetVehicle(ctx context.Context, id string) (*db.Vehicle, error) {
	var v db.Vehicle
	err := q.get(ctx, &v, `SELECT id, parking_id, price, status, for_sale, for_rent FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get vehicle %s: %w", id, err)
	}
	return &v, nil
}

func (q *sqlQueries) SetVehicleStatus(ctx context.Context, id string, status db.VehicleStatus) error {
	result, err := q.exec(ctx, `UPDATE vehicles SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set vehicle %s status: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("set vehicle %s status: %w", id, ErrNotFound)
	}
	return nil
}

func (q *sqlQueries) ListVehicleIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := q.selectAll(ctx, &ids, `SELECT id FROM vehicles ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list vehicle ids: %w", err)
	}
	return ids, nil
}

func (q *sqlQueries) GetParking(ctx context.Context, id string) (*db.Parking, error) {
	var p db.Parking
	if err := q.get(ctx, &p, `SELECT id, user_id, name FROM parkings WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get parking %s: %w", id, err)
	}
	return &p, nil
}

func (q *sqlQueries) GetParkingByOwner(ctx context.Context, userID string) (*db.Parking, error) {
	var p db.Parking
	if err := q.get(ctx, &p, `SELECT id, user_id, name FROM parkings WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("get parking owned by %s: %w", userID, err)
	}
	return &p, nil
}

func (q *sqlQueries) GetVehicleStats(ctx context.Context, vehicleID string) (*db.VehicleStats, error) {
	var s db.VehicleStats
	err := q.get(ctx, &s, `SELECT vehicle_id, reservations, updated_at FROM vehicle_stats WHERE vehicle_id = ?`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("get stats for vehicle %s: %w", vehicleID, err)
	}
	return &s, nil
}

// IncrementReservationCount creates the stats row with 1 or bumps it in a
// single statement.
func (q *sqlQueries) IncrementReservationCount(ctx context.Context, vehicleID string, at time.Time) error {
	_, err := q.exec(ctx, `
		INSERT INTO vehicle_stats(vehicle_id, reservations, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(vehicle_id) DO UPDATE
		SET reservations = vehicle_stats.reservations + 1, updated_at = excluded.updated_at`,
		vehicleID, at,
	)
	if err != nil {
		return fmt.Errorf("increment stats for vehicle %s: %w", vehicleID, mapWriteError(err))
	}
	return nil
}

func (q *sqlQueries) DecrementReservationCount(ctx context.Context, vehicleID string, at time.Time) (bool, error) {
	result, err := q.exec(ctx, `
		UPDATE vehicle_stats
		SET reservations = reservations - 1, updated_at = ?
		WHERE vehicle_id = ? AND reservations > 0`,
		at, vehicleID,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stats for vehicle %s: %w", vehicleID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stats for vehicle %s: %w", vehicleID, err)
	}
	return n > 0, nil
}

func (q *sqlQueries) SetReservationCount(ctx context.Context, vehicleID string, n int, at time.Time) error {
	_, err := q.exec(ctx, `
		INSERT INTO vehicle_stats(vehicle_id, reservations, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(vehicle_id) DO UPDATE
		SET reservations = excluded.reservations, updated_at = excluded.updated_at`,
		vehicleID, n, at,
	)
	if err != nil {
		return fmt.Errorf("set stats for vehicle %s: %w", vehicleID, mapWriteError(err))
	}
	return nil
}
