package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkingapp/internal/db"
	"parkingapp/internal/entities"
	apperr "parkingapp/internal/errors"
	applog "parkingapp/internal/log"
	"parkingapp/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxReasonLength  = 500
)

type ReservationService struct {
	Store      repository.Store
	Dispatcher Dispatcher
	// Now is the clock used for timestamps and the cancellation window.
	Now func() time.Time
}

func NewReservationService(store repository.Store, dispatcher Dispatcher) *ReservationService {
	return &ReservationService{
		Store:      store,
		Dispatcher: dispatcher,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// ReservationPage is one page of a reservation listing.
type ReservationPage struct {
	Reservations []db.Reservation
	Total        int64
	Limit        int
	Offset       int
}

// Create registers a PENDING reservation requested by a client.
func (s *ReservationService) Create(ctx context.Context, actor db.Actor, req entities.ReservationRequest) (*db.Reservation, error) {
	if actor.Role != db.RoleClient {
		return nil, apperr.ErrForbidden.WithMessage("only clients can create reservations")
	}
	if !req.Type.Valid() {
		return nil, apperr.ErrValidation.WithMessage(fmt.Sprintf("unknown reservation type %q", req.Type))
	}
	if req.Type == db.TypePurchase {
		req.DateStart, req.DateEnd = nil, nil
	}

	var (
		res     *db.Reservation
		vehicle *db.Vehicle
	)
	err := s.Store.WithinTx(ctx, func(q repository.Queries) error {
		if err := q.LockVehicle(ctx, req.VehicleID); err != nil {
			return err
		}
		v, err := q.GetVehicle(ctx, req.VehicleID)
		if err != nil {
			return notFoundAs(err, "vehicle")
		}
		if err := CheckEligibility(v, req.Type, req.DateStart, req.DateEnd); err != nil {
			return err
		}
		if req.Type == db.TypeRental {
			accepted, err := q.ListAcceptedRentals(ctx, v.ID)
			if err != nil {
				return err
			}
			if id, found := FindConflict(accepted, *req.DateStart, *req.DateEnd, ""); found {
				return dateConflict(id)
			}
		}

		now := s.Now()
		r := &db.Reservation{
			ID:         uuid.NewString(),
			UserID:     actor.ID,
			VehicleID:  v.ID,
			Type:       req.Type,
			DateStart:  req.DateStart,
			DateEnd:    req.DateEnd,
			Status:     db.StatusPending,
			Commission: commissionFor(v, req.Type),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := q.InsertReservation(ctx, r); err != nil {
			return err
		}
		res, vehicle = r, v
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Audit(ctx, "reservation.create", map[string]any{
		"reservation_id": res.ID,
		"vehicle_id":     res.VehicleID,
		"type":           res.Type,
	})
	s.dispatch(ctx, creationNotifications(res, vehicle))
	return res, nil
}

// UpdateStatus moves reservation id to rawStatus on behalf of actor.
func (s *ReservationService) UpdateStatus(ctx context.Context, actor db.Actor, id, rawStatus string, reason *string) (*db.Reservation, error) {
	target, err := parseTargetStatus(actor, rawStatus)
	if err != nil {
		applog.Security(ctx, "reservation.status.reject", map[string]any{
			"reservation_id": id,
			"status":         rawStatus,
			"reason":         apperrReason(err),
		})
		return nil, err
	}
	reason, err = normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	var (
		res     *db.Reservation
		vehicle *db.Vehicle
		from    db.ReservationStatus
	)
	err = s.Store.WithinTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "reservation")
		}
		if err := q.LockVehicle(ctx, r.VehicleID); err != nil {
			return err
		}
		v, err := q.GetVehicle(ctx, r.VehicleID)
		if err != nil {
			return notFoundAs(err, "vehicle")
		}
		actorParking, err := parkingOf(ctx, q, actor)
		if err != nil {
			return err
		}

		now := s.Now()
		if err := checkTransition(transitionCheck{
			Actor:        actor,
			Reservation:  r,
			Vehicle:      v,
			ActorParking: actorParking,
			Target:       target,
			Now:          now,
		}); err != nil {
			return err
		}

		if target == db.StatusAccepted {
			if err := s.checkAccept(ctx, q, r, v); err != nil {
				return err
			}
		}

		from = r.Status
		if err := q.UpdateReservationStatus(ctx, r.ID, from, target, reason, now); err != nil {
			return notFoundAs(err, "reservation")
		}
		if err := applyTransitionEffects(ctx, q, r, from, target, now); err != nil {
			return err
		}

		r.Status = target
		r.StatusReason = reason
		r.UpdatedAt = now
		res, vehicle = r, v
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrForbidden) {
			applog.Security(ctx, "reservation.status.forbidden", map[string]any{"reservation_id": id, "status": target})
		}
		return nil, err
	}

	applog.Audit(ctx, "reservation.status.update", map[string]any{
		"reservation_id": res.ID,
		"from":           from,
		"to":             res.Status,
		"role":           actor.Role,
	})
	s.dispatch(ctx, transitionNotifications(res, vehicle, actor))
	return res, nil
}

// checkAccept re-checks, under the vehicle lock, that r can still be
// accepted.
func (s *ReservationService) checkAccept(ctx context.Context, q repository.Queries, r *db.Reservation, v *db.Vehicle) error {
	if r.Type == db.TypePurchase {
		if v.Status != db.VehicleAvailable {
			return apperr.ErrVehicleUnavailable.WithMessage(fmt.Sprintf("vehicle %s is %s", v.ID, v.Status))
		}
		return nil
	}
	if r.DateStart == nil || r.DateEnd == nil {
		return apperr.ErrInvalidDateRange
	}
	accepted, err := q.ListAcceptedRentals(ctx, r.VehicleID)
	if err != nil {
		return err
	}
	if id, found := FindConflict(accepted, *r.DateStart, *r.DateEnd, r.ID); found {
		return dateConflict(id)
	}
	return nil
}

func (s *ReservationService) Get(ctx context.Context, actor db.Actor, id string) (*db.Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "reservation")
	}
	v, err := s.Store.GetVehicle(ctx, r.VehicleID)
	if err != nil {
		return nil, notFoundAs(err, "vehicle")
	}
	actorParking, err := parkingOf(ctx, s.Store, actor)
	if err != nil {
		return nil, err
	}
	if !canAct(actor, r, v, actorParking) {
		return nil, apperr.ErrForbidden.WithMessage("reservation does not belong to you")
	}
	return r, nil
}

// ListOwn lists the reservations the client requested.
func (s *ReservationService) ListOwn(ctx context.Context, actor db.Actor, f repository.ReservationFilter) (*ReservationPage, error) {
	if actor.Role != db.RoleClient {
		return nil, apperr.ErrForbidden.WithMessage("only clients have own reservations")
	}
	f.UserID = &actor.ID
	return s.list(ctx, f)
}

// ListForParking lists reservations of the vehicles in the actor's parking.
func (s *ReservationService) ListForParking(ctx context.Context, actor db.Actor, f repository.ReservationFilter) (*ReservationPage, error) {
	if actor.Role != db.RoleParking {
		return nil, apperr.ErrForbidden.WithMessage("only parking owners can list parking reservations")
	}
	p, err := parkingOf(ctx, s.Store, actor)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrForbidden.WithMessage("you do not own a parking")
	}
	f.ParkingID = &p.ID
	return s.list(ctx, f)
}

func (s *ReservationService) ListAll(ctx context.Context, actor db.Actor, f repository.ReservationFilter) (*ReservationPage, error) {
	if actor.Role != db.RoleAdmin {
		return nil, apperr.ErrForbidden.WithMessage("admin only")
	}
	return s.list(ctx, f)
}

func (s *ReservationService) list(ctx context.Context, f repository.ReservationFilter) (*ReservationPage, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, err := s.Store.ListReservations(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.CountReservations(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ReservationPage{Reservations: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Delete removes a reservation. An ACCEPTED one first releases what its
// acceptance took.
func (s *ReservationService) Delete(ctx context.Context, actor db.Actor, id string) error {
	if actor.Role != db.RoleAdmin {
		return apperr.ErrForbidden.WithMessage("admin only")
	}
	var deleted *db.Reservation
	err := s.Store.WithinTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "reservation")
		}
		if err := q.LockVehicle(ctx, r.VehicleID); err != nil {
			return err
		}
		if r.Status == db.StatusAccepted {
			if err := applyTransitionEffects(ctx, q, r, db.StatusAccepted, db.StatusCanceled, s.Now()); err != nil {
				return err
			}
		}
		if err := q.DeleteReservation(ctx, r.ID); err != nil {
			return notFoundAs(err, "reservation")
		}
		deleted = r
		return nil
	})
	if err != nil {
		return err
	}
	applog.Audit(ctx, "reservation.delete", map[string]any{
		"reservation_id": deleted.ID,
		"vehicle_id":     deleted.VehicleID,
		"status":         deleted.Status,
	})
	return nil
}

// VehicleStats returns the accepted reservation counter of a vehicle.
func (s *ReservationService) VehicleStats(ctx context.Context, actor db.Actor, vehicleID string) (*db.VehicleStats, error) {
	v, err := s.Store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, notFoundAs(err, "vehicle")
	}
	switch actor.Role {
	case db.RoleAdmin:
	case db.RoleParking:
		p, err := parkingOf(ctx, s.Store, actor)
		if err != nil {
			return nil, err
		}
		if !ownsVehicle(p, v) {
			return nil, apperr.ErrForbidden.WithMessage("vehicle is not in your parking")
		}
	default:
		return nil, apperr.ErrForbidden
	}

	stats, err := s.Store.GetVehicleStats(ctx, v.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return &db.VehicleStats{VehicleID: v.ID}, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CheckAvailability answers whether req would be accepted by Create right
// now. Nothing is written.
func (s *ReservationService) CheckAvailability(ctx context.Context, req entities.ReservationRequest) (*entities.AvailabilityResponse, error) {
	v, err := s.Store.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, notFoundAs(err, "vehicle")
	}
	if req.Type == db.TypePurchase {
		req.DateStart, req.DateEnd = nil, nil
	}

	if err := CheckEligibility(v, req.Type, req.DateStart, req.DateEnd); err != nil {
		var he *apperr.HTTPError
		if !errors.As(err, &he) {
			return nil, err
		}
		return &entities.AvailabilityResponse{Reason: he.Reason, Message: he.Message}, nil
	}

	if req.Type == db.TypeRental {
		accepted, err := s.Store.ListAcceptedRentals(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if id, found := FindConflict(accepted, *req.DateStart, *req.DateEnd, ""); found {
			return &entities.AvailabilityResponse{
				Reason:                   apperr.ErrDateConflict.Reason,
				Message:                  apperr.ErrDateConflict.Message,
				ConflictingReservationID: id,
			}, nil
		}
	}
	return &entities.AvailabilityResponse{Available: true}, nil
}

// parkingOf returns the parking a PARKING actor owns, nil for other roles or
// when the owner has none.
func parkingOf(ctx context.Context, q repository.Queries, actor db.Actor) (*db.Parking, error) {
	if actor.Role != db.RoleParking {
		return nil, nil
	}
	p, err := q.GetParkingByOwner(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func normalizeReason(reason *string) (*string, error) {
	if reason == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil, nil
	}
	if len([]rune(trimmed)) > maxReasonLength {
		return nil, apperr.ErrValidation.WithMessage(fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}
	return &trimmed, nil
}

func dateConflict(conflictID string) error {
	return apperr.ErrDateConflict.WithMessage(fmt.Sprintf("overlaps accepted reservation %s", conflictID))
}

// notFoundAs maps repository errors onto the API taxonomy.
func notFoundAs(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ErrNotFound.WithMessage(what + " not found")
	case errors.Is(err, repository.ErrStaleStatus):
		return apperr.ErrConflict
	}
	return err
}

func apperrReason(err error) string {
	var he *apperr.HTTPError
	if errors.As(err, &he) {
		return he.Reason
	}
	return ""
}
