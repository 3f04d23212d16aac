package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
)

func TestOverlapsIsInclusive(t *testing.T) {
	at := func(h int) time.Time { return clock.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name       string
		a1, a2     int
		b1, b2     int
		overlapped bool
	}{
		{"disjoint before", 0, 2, 3, 5, false},
		{"disjoint after", 6, 8, 3, 5, false},
		{"touching end to start", 0, 3, 3, 5, true},
		{"touching start to end", 5, 7, 3, 5, true},
		{"contained", 3, 4, 2, 6, true},
		{"containing", 1, 9, 2, 6, true},
		{"partial", 4, 8, 2, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlapped, Overlaps(at(tt.a1), at(tt.a2), at(tt.b1), at(tt.b2)))
			assert.Equal(t, tt.overlapped, Overlaps(at(tt.b1), at(tt.b2), at(tt.a1), at(tt.a2)), "symmetric")
		})
	}
}

func TestFindConflict(t *testing.T) {
	res := func(id string, typ db.ReservationType, status db.ReservationStatus, start, end *time.Time) db.Reservation {
		return db.Reservation{ID: id, Type: typ, Status: status, DateStart: start, DateEnd: end}
	}
	candidates := []db.Reservation{
		res("pending", db.TypeRental, db.StatusPending, day(1), day(9)),
		res("canceled", db.TypeRental, db.StatusCanceled, day(1), day(9)),
		res("purchase", db.TypePurchase, db.StatusAccepted, nil, nil),
		res("self", db.TypeRental, db.StatusAccepted, day(4), day(6)),
		res("hit", db.TypeRental, db.StatusAccepted, day(6), day(7)),
	}

	id, found := FindConflict(candidates, *day(5), *day(6), "self")
	assert.True(t, found)
	assert.Equal(t, "hit", id)

	_, found = FindConflict(candidates, *day(2), *day(3), "")
	assert.False(t, found, "only accepted rentals conflict")

	_, found = FindConflict(nil, *day(2), *day(3), "")
	assert.False(t, found)
}

func TestCheckEligibility(t *testing.T) {
	available := db.Vehicle{ID: "v", Status: db.VehicleAvailable, ForRent: true}
	maintenance := db.Vehicle{ID: "v", Status: db.VehicleInMaintenance, ForRent: true}

	tests := []struct {
		name       string
		v          db.Vehicle
		t          db.ReservationType
		start, end *time.Time
		want       error
	}{
		{"rental ok", available, db.TypeRental, day(1), day(2), nil},
		{"not for sale", available, db.TypePurchase, nil, nil, apperr.ErrIneligibleType},
		{"type checked before status", db.Vehicle{Status: db.VehicleUnavailable}, db.TypeRental, day(1), day(2), apperr.ErrIneligibleType},
		{"in maintenance", maintenance, db.TypeRental, day(1), day(2), apperr.ErrVehicleUnavailable},
		{"status checked before dates", maintenance, db.TypeRental, nil, nil, apperr.ErrVehicleUnavailable},
		{"missing end", available, db.TypeRental, day(1), nil, apperr.ErrInvalidDateRange},
		{"reversed", available, db.TypeRental, day(2), day(1), apperr.ErrInvalidDateRange},
		{"unknown type", available, "SWAP", nil, nil, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEligibility(&tt.v, tt.t, tt.start, tt.end)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCommissionFor(t *testing.T) {
	v := &db.Vehicle{Price: decimal.RequireFromString("1234.56")}
	c := commissionFor(v, db.TypeRental)
	assert.True(t, c.Valid)
	assert.Equal(t, "123.46", c.Decimal.StringFixed(2))
	assert.False(t, commissionFor(v, db.TypePurchase).Valid)
}

func TestParseTargetStatus(t *testing.T) {
	tests := []struct {
		actor db.Actor
		raw   string
		want  error
	}{
		{client, "CANCELED", nil},
		{client, "ACCEPTED", apperr.ErrForbidden},
		{client, "PENDING", apperr.ErrForbidden},
		{owner, "ACCEPTED", nil},
		{owner, "accepted", apperr.ErrInvalidStatus},
		{admin, "PENDING", apperr.ErrIllegalTransition},
		{db.Actor{ID: "x", Role: "GUEST"}, "CANCELED", apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.actor.Role)+"/"+tt.raw, func(t *testing.T) {
			got, err := parseTargetStatus(tt.actor, tt.raw)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.Equal(t, db.ReservationStatus(tt.raw), got)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckTransitionCancellationWindow(t *testing.T) {
	parkingID := "p-central"
	v := &db.Vehicle{ID: "v-rent", ParkingID: &parkingID}
	start := clock.Add(48 * time.Hour)
	r := &db.Reservation{UserID: client.ID, Type: db.TypeRental, Status: db.StatusAccepted, DateStart: &start}

	check := func(now time.Time) error {
		return checkTransition(transitionCheck{Actor: client, Reservation: r, Vehicle: v, Target: db.StatusCanceled, Now: now})
	}
	assert.NoError(t, check(start.Add(-25*time.Hour)))
	assert.NoError(t, check(start.Add(-24*time.Hour)), "exactly 24h before is still allowed")
	assert.ErrorIs(t, check(start.Add(-24*time.Hour+time.Second)), apperr.ErrCancellationWindowClosed)

	purchase := &db.Reservation{UserID: client.ID, Type: db.TypePurchase, Status: db.StatusAccepted}
	err := checkTransition(transitionCheck{Actor: client, Reservation: purchase, Vehicle: v, Target: db.StatusCanceled, Now: clock})
	assert.NoError(t, err, "purchases have no window")
}
