package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkingapp/internal/db"
)

const reservationColumns = `r.id, r.user_id, r.vehicle_id, r.type, r.date_start, r.date_end, r.status,
	r.commission, r.status_reason, r.created_at, r.updated_at`

func (q *sqlQueries) GetReservation(ctx context.Context, id string) (*db.Reservation, error) {
	var res db.Reservation
	err := q.get(ctx, &res, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return &res, nil
}

func (q *sqlQueries) GetReservationForUpdate(ctx context.Context, id string) (*db.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = ?`
	if q.postgres() {
		query += ` FOR UPDATE`
	}
	var res db.Reservation
	if err := q.get(ctx, &res, query, id); err != nil {
		return nil, fmt.Errorf("lock reservation %s: %w", id, err)
	}
	return &res, nil
}

func (q *sqlQueries) InsertReservation(ctx context.Context, res *db.Reservation) error {
	_, err := q.exec(ctx, `
		INSERT INTO reservations
		(id, user_id, vehicle_id, type, date_start, date_end, status, commission, status_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.UserID, res.VehicleID, res.Type, res.DateStart, res.DateEnd, res.Status,
		res.Commission, res.StatusReason, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", mapWriteError(err))
	}
	return nil
}

func (q *sqlQueries) UpdateReservationStatus(ctx context.Context, id string, from, to db.ReservationStatus, reason *string, at time.Time) error {
	result, err := q.exec(ctx, `
		UPDATE reservations
		SET status = ?, status_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, reason, at, id, from,
	)
	if err != nil {
		return fmt.Errorf("update reservation %s status: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation %s status: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update reservation %s from %s: %w", id, from, ErrStaleStatus)
	}
	return nil
}

func (q *sqlQueries) DeleteReservation(ctx context.Context, id string) error {
	result, err := q.exec(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete reservation %s: %w", id, ErrNotFound)
	}
	return nil
}

// filterClause translates a ReservationFilter into a WHERE clause.
func filterClause(f ReservationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != nil {
		conds = append(conds, "r.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.VehicleID != nil {
		conds = append(conds, "r.vehicle_id = ?")
		args = append(args, *f.VehicleID)
	}
	if f.ParkingID != nil {
		conds = append(conds, "v.parking_id = ?")
		args = append(args, *f.ParkingID)
	}
	if f.Status != nil {
		conds = append(conds, "r.status = ?")
		args = append(args, *f.Status)
	}
	if f.Type != nil {
		conds = append(conds, "r.type = ?")
		args = append(args, *f.Type)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *sqlQueries) ListReservations(ctx context.Context, f ReservationFilter) ([]db.Reservation, error) {
	where, args := filterClause(f)
	query := `SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id` + where + `
		ORDER BY r.created_at DESC, r.id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	out := []db.Reservation{}
	if err := q.selectAll(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func (q *sqlQueries) CountReservations(ctx context.Context, f ReservationFilter) (int64, error) {
	where, args := filterClause(f)
	var n int64
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM reservations r JOIN vehicles v ON v.id = r.vehicle_id`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (q *sqlQueries) ListAcceptedRentals(ctx context.Context, vehicleID string) ([]db.Reservation, error) {
	out := []db.Reservation{}
	err := q.selectAll(ctx, &out, `SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.vehicle_id = ? AND r.status = ? AND r.type = ?`,
		vehicleID, db.StatusAccepted, db.TypeRental,
	)
	if err != nil {
		return nil, fmt.Errorf("list accepted rentals for vehicle %s: %w", vehicleID, err)
	}
	return out, nil
}

func (q *sqlQueries) CountAccepted(ctx context.Context, vehicleID string) (int, error) {
	var n int
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM reservations WHERE vehicle_id = ? AND status = ?`, vehicleID, db.StatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("count accepted for vehicle %s: %w", vehicleID, err)
	}
	return n, nil
}
