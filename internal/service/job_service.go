package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
	applog "parkingapp/internal/log"
	"parkingapp/internal/repository"
)

const expiredReason = "expired"

// systemActor is the identity maintenance jobs act as.
var systemActor = db.Actor{ID: "system", Role: db.RoleAdmin}

type JobService struct {
	Store        repository.Store
	Reservations *ReservationService
	PurchaseTTL  time.Duration
}

func NewJobService(store repository.Store, reservations *ReservationService, purchaseTTL time.Duration) *JobService {
	return &JobService{Store: store, Reservations: reservations, PurchaseTTL: purchaseTTL}
}

// ExpireStalePending cancels PENDING reservations that were never acted on:
// rentals whose start has passed and purchases older than PurchaseTTL. Each
// one is canceled in its own transaction and returns the number canceled.
func (s *JobService) ExpireStalePending(ctx context.Context) (int, error) {
	log.Println("Cron Job: checking for stale pending reservations...")

	ids, err := s.Store.ListStalePending(ctx, s.Reservations.Now(), s.PurchaseTTL)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to list stale pending reservations: %w", err)
	}
	if len(ids) == 0 {
		log.Println("Cron Job: no stale pending reservations found.")
		return 0, nil
	}

	reason := expiredReason
	expired := 0
	for _, id := range ids {
		_, err := s.Reservations.UpdateStatus(ctx, systemActor, id, string(db.StatusCanceled), &reason)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, apperr.ErrIllegalTransition), errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrNotFound):
			// Changed by someone else since it was listed.
		default:
			applog.Error(ctx, "job.expire.fail", err, map[string]any{"reservation_id": id})
		}
	}
	log.Printf("Cron Job: expired %d of %d stale pending reservations.", expired, len(ids))
	return expired, nil
}

// ReconcileStats resets every vehicle counter that disagrees with its
// number of ACCEPTED reservations, and returns how many were repaired.
func (s *JobService) ReconcileStats(ctx context.Context) (int, error) {
	ids, err := s.Store.ListVehicleIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to list vehicles: %w", err)
	}

	repaired := 0
	for _, vehicleID := range ids {
		var fixed bool
		err := s.Store.WithinTx(ctx, func(q repository.Queries) error {
			if err := q.LockVehicle(ctx, vehicleID); err != nil {
				return err
			}
			want, err := q.CountAccepted(ctx, vehicleID)
			if err != nil {
				return err
			}
			have := 0
			stats, err := q.GetVehicleStats(ctx, vehicleID)
			switch {
			case err == nil:
				have = stats.Reservations
			case errors.Is(err, repository.ErrNotFound):
				if want == 0 {
					return nil
				}
			default:
				return err
			}
			if have == want {
				return nil
			}
			if err := q.SetReservationCount(ctx, vehicleID, want, s.Reservations.Now()); err != nil {
				return err
			}
			applog.Audit(ctx, "stats.reconcile", map[string]any{"vehicle_id": vehicleID, "was": have, "now": want})
			fixed = true
			return nil
		})
		if err != nil {
			applog.Error(ctx, "job.reconcile.fail", err, map[string]any{"vehicle_id": vehicleID})
			continue
		}
		if fixed {
			repaired++
		}
	}
	return repaired, nil
}

// Schedule registers both jobs on c.
func (s *JobService) Schedule(c *cron.Cron, expireSpec, reconcileSpec string) error {
	if _, err := c.AddFunc(expireSpec, func() {
		if _, err := s.ExpireStalePending(context.Background()); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule expire job %q: %w", expireSpec, err)
	}
	if _, err := c.AddFunc(reconcileSpec, func() {
		if _, err := s.ReconcileStats(context.Background()); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconcile job %q: %w", reconcileSpec, err)
	}
	return nil
}
