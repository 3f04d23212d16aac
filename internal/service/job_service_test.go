package service

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/db"
)

func TestExpireStalePending(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	started, err := svc.Create(ctx, client, rentalReq("v-rent", day(1), day(3)))
	require.NoError(t, err)
	future, err := svc.Create(ctx, client, rentalReq("v-rent", day(10), day(12)))
	require.NoError(t, err)
	oldPurchase, err := svc.Create(ctx, client, purchaseReq("v-sale"))
	require.NoError(t, err)
	accepted, err := svc.Create(ctx, client, rentalReq("v-both", day(1), day(2)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, admin, accepted.ID, "ACCEPTED", nil)
	require.NoError(t, err)

	svc.Now = func() time.Time { return *day(2) }
	recent, err := svc.Create(ctx, other, purchaseReq("v-both"))
	require.NoError(t, err)

	jobs := NewJobService(store, svc, 36*time.Hour)
	n, err := jobs.ExpireStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]db.ReservationStatus{
		started.ID:     db.StatusCanceled,
		oldPurchase.ID: db.StatusCanceled,
		future.ID:      db.StatusPending,
		recent.ID:      db.StatusPending,
		accepted.ID:    db.StatusAccepted,
	} {
		got, err := store.GetReservation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	got, err := store.GetReservation(ctx, started.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StatusReason)
	assert.Equal(t, expiredReason, *got.StatusReason)

	n, err = jobs.ExpireStalePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcileStats(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Create(ctx, client, rentalReq("v-rent", day(1), day(2)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, owner, r.ID, "ACCEPTED", nil)
	require.NoError(t, err)

	require.NoError(t, store.SetReservationCount(ctx, "v-rent", 7, clock))
	require.NoError(t, store.SetReservationCount(ctx, "v-sale", 2, clock))

	jobs := NewJobService(store, svc, time.Hour)
	n, err := jobs.ReconcileStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.statsOf("v-rent"))
	assert.Equal(t, 0, store.statsOf("v-sale"))

	_, err = store.GetVehicleStats(ctx, "v-both")
	assert.Error(t, err, "no row is created for a vehicle that was never accepted")

	n, err = jobs.ReconcileStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	svc, store, _ := newTestService()
	jobs := NewJobService(store, svc, time.Hour)

	c := cron.New()
	assert.NoError(t, jobs.Schedule(c, "@every 15m", "@hourly"))
	assert.Len(t, c.Entries(), 2)
	assert.Error(t, jobs.Schedule(cron.New(), "not a schedule", "@hourly"))
}
