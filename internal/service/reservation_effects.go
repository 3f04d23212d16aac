package service

import (
	"context"
	"time"

	"parkingapp/internal/db"
	applog "parkingapp/internal/log"
	"parkingapp/internal/repository"
)

// applyTransitionEffects keeps vehicle status and stats in line with a
// status change of r. It must run in the same transaction as the change.
func applyTransitionEffects(ctx context.Context, q repository.Queries, r *db.Reservation, from, to db.ReservationStatus, at time.Time) error {
	enters := from != db.StatusAccepted && to == db.StatusAccepted
	leaves := from == db.StatusAccepted && to != db.StatusAccepted

	if r.Type == db.TypePurchase {
		switch {
		case enters:
			if err := q.SetVehicleStatus(ctx, r.VehicleID, db.VehicleUnavailable); err != nil {
				return err
			}
		case leaves:
			if err := q.SetVehicleStatus(ctx, r.VehicleID, db.VehicleAvailable); err != nil {
				return err
			}
		}
	}

	switch {
	case enters:
		return q.IncrementReservationCount(ctx, r.VehicleID, at)
	case leaves:
		ok, err := q.DecrementReservationCount(ctx, r.VehicleID, at)
		if err != nil {
			return err
		}
		if !ok {
			applog.Error(ctx, "stats.invariant.violation", nil, map[string]any{
				"vehicle_id":     r.VehicleID,
				"reservation_id": r.ID,
				"detail":         "reservation count already zero, decrement skipped",
			})
		}
	}
	return nil
}
