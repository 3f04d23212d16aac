package service

import (
	"fmt"
	"slices"
	"time"

	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
)

// cancellationNotice is how long before a rental starts its client can
// still cancel it.
const cancellationNotice = 24 * time.Hour

var reservationTransitions = map[db.ReservationStatus][]db.ReservationStatus{
	db.StatusPending:  {db.StatusAccepted, db.StatusCanceled},
	db.StatusAccepted: {db.StatusCanceled},
	db.StatusCanceled: {},
}

var transitionActors = map[db.ReservationStatus][]db.Role{
	db.StatusAccepted: {db.RoleParking, db.RoleAdmin},
	db.StatusCanceled: {db.RoleClient, db.RoleParking, db.RoleAdmin},
}

func canTransition(from, to db.ReservationStatus) bool {
	return slices.Contains(reservationTransitions[from], to)
}

// parseTargetStatus runs the checks that need nothing but the request.
func parseTargetStatus(actor db.Actor, raw string) (db.ReservationStatus, error) {
	target := db.ReservationStatus(raw)
	if actor.Role == db.RoleClient && target != db.StatusCanceled {
		return "", apperr.ErrForbidden.WithMessage("clients can only cancel reservations")
	}
	if !target.Valid() {
		return "", apperr.ErrInvalidStatus
	}
	if target == db.StatusPending {
		return "", apperr.ErrIllegalTransition.WithMessage("a reservation cannot be moved back to PENDING")
	}
	if !slices.Contains(transitionActors[target], actor.Role) {
		return "", apperr.ErrForbidden.WithMessage(fmt.Sprintf("role %q cannot set status %s", actor.Role, target))
	}
	return target, nil
}

type transitionCheck struct {
	Actor       db.Actor
	Reservation *db.Reservation
	Vehicle     *db.Vehicle
	// ActorParking is the parking owned by a PARKING actor, nil if none.
	ActorParking *db.Parking
	Target       db.ReservationStatus
	Now          time.Time
}

// checkTransition applies ownership, the transition table and the client
// cancellation window. Conflict detection is done by the caller.
func checkTransition(c transitionCheck) error {
	if !canAct(c.Actor, c.Reservation, c.Vehicle, c.ActorParking) {
		return apperr.ErrForbidden.WithMessage("reservation does not belong to you")
	}

	from := c.Reservation.Status
	if !canTransition(from, c.Target) {
		return apperr.ErrIllegalTransition.WithMessage(fmt.Sprintf("cannot move reservation from %s to %s", from, c.Target))
	}

	if c.Actor.Role == db.RoleClient && c.Target == db.StatusCanceled && c.Reservation.Type == db.TypeRental {
		if c.Reservation.DateStart == nil {
			return apperr.ErrInvalidDateRange
		}
		cutoff := c.Reservation.DateStart.Add(-cancellationNotice)
		if c.Now.After(cutoff) {
			return apperr.ErrCancellationWindowClosed
		}
	}
	return nil
}

// canAct reports whether actor may read or change reservation r on vehicle v.
func canAct(actor db.Actor, r *db.Reservation, v *db.Vehicle, actorParking *db.Parking) bool {
	switch actor.Role {
	case db.RoleAdmin:
		return true
	case db.RoleClient:
		return r.UserID == actor.ID
	case db.RoleParking:
		return ownsVehicle(actorParking, v)
	}
	return false
}

func ownsVehicle(p *db.Parking, v *db.Vehicle) bool {
	return p != nil && v.ParkingID != nil && *v.ParkingID == p.ID
}
