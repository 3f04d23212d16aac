package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"parkingapp/internal/db"
	"parkingapp/internal/repository"
)

type memState struct {
	reservations map[string]db.Reservation
	vehicles     map[string]db.Vehicle
	parkings     map[string]db.Parking
	stats        map[string]db.VehicleStats
}

func (s *memState) clone() *memState {
	c := &memState{
		reservations: make(map[string]db.Reservation, len(s.reservations)),
		vehicles:     make(map[string]db.Vehicle, len(s.vehicles)),
		parkings:     make(map[string]db.Parking, len(s.parkings)),
		stats:        make(map[string]db.VehicleStats, len(s.stats)),
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range s.parkings {
		c.parkings[k] = v
	}
	for k, v := range s.stats {
		c.stats[k] = v
	}
	return c
}

// memQueries works on a memState. With mu set every call takes it; inside a
// transaction mu is nil because the store already holds it.
type memQueries struct {
	mu *sync.Mutex
	st **memState
}

func (q *memQueries) lock() func() {
	if q.mu == nil {
		return func() {}
	}
	q.mu.Lock()
	return q.mu.Unlock
}

func (q *memQueries) state() *memState { return *q.st }

func (q *memQueries) GetReservation(_ context.Context, id string) (*db.Reservation, error) {
	defer q.lock()()
	r, ok := q.state().reservations[id]
	if !ok {
		return nil, fmt.Errorf("get reservation %s: %w", id, repository.ErrNotFound)
	}
	return &r, nil
}

func (q *memQueries) GetReservationForUpdate(ctx context.Context, id string) (*db.Reservation, error) {
	return q.GetReservation(ctx, id)
}

func (q *memQueries) InsertReservation(_ context.Context, res *db.Reservation) error {
	defer q.lock()()
	if _, ok := q.state().vehicles[res.VehicleID]; !ok {
		return repository.ErrReference
	}
	q.state().reservations[res.ID] = *res
	return nil
}

func (q *memQueries) UpdateReservationStatus(_ context.Context, id string, from, to db.ReservationStatus, reason *string, at time.Time) error {
	defer q.lock()()
	r, ok := q.state().reservations[id]
	if !ok || r.Status != from {
		return repository.ErrStaleStatus
	}
	r.Status, r.StatusReason, r.UpdatedAt = to, reason, at
	q.state().reservations[id] = r
	return nil
}

func (q *memQueries) DeleteReservation(_ context.Context, id string) error {
	defer q.lock()()
	if _, ok := q.state().reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(q.state().reservations, id)
	return nil
}

func (q *memQueries) matching(f repository.ReservationFilter) []db.Reservation {
	out := []db.Reservation{}
	for _, r := range q.state().reservations {
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.VehicleID != nil && r.VehicleID != *f.VehicleID {
			continue
		}
		if f.ParkingID != nil {
			v := q.state().vehicles[r.VehicleID]
			if v.ParkingID == nil || *v.ParkingID != *f.ParkingID {
				continue
			}
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.Type != nil && r.Type != *f.Type {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (q *memQueries) ListReservations(_ context.Context, f repository.ReservationFilter) ([]db.Reservation, error) {
	defer q.lock()()
	out := q.matching(f)
	if f.Offset >= len(out) {
		return []db.Reservation{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (q *memQueries) CountReservations(_ context.Context, f repository.ReservationFilter) (int64, error) {
	defer q.lock()()
	return int64(len(q.matching(f))), nil
}

func (q *memQueries) ListAcceptedRentals(_ context.Context, vehicleID string) ([]db.Reservation, error) {
	defer q.lock()()
	accepted, rental := db.StatusAccepted, db.TypeRental
	return q.matching(repository.ReservationFilter{VehicleID: &vehicleID, Status: &accepted, Type: &rental}), nil
}

func (q *memQueries) ListStalePending(_ context.Context, now time.Time, purchaseTTL time.Duration) ([]string, error) {
	defer q.lock()()
	pending := db.StatusPending
	ids := []string{}
	for _, r := range q.matching(repository.ReservationFilter{Status: &pending}) {
		if r.Type == db.TypeRental && r.DateStart.Before(now) ||
			r.Type == db.TypePurchase && r.CreatedAt.Before(now.Add(-purchaseTTL)) {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (q *memQueries) LockVehicle(context.Context, string) error { return nil }

func (q *memQueries) GetVehicle(_ context.Context, id string) (*db.Vehicle, error) {
	defer q.lock()()
	v, ok := q.state().vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (q *memQueries) SetVehicleStatus(_ context.Context, id string, status db.VehicleStatus) error {
	defer q.lock()()
	v, ok := q.state().vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Status = status
	q.state().vehicles[id] = v
	return nil
}

func (q *memQueries) ListVehicleIDs(context.Context) ([]string, error) {
	defer q.lock()()
	ids := []string{}
	for id := range q.state().vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (q *memQueries) GetParking(_ context.Context, id string) (*db.Parking, error) {
	defer q.lock()()
	p, ok := q.state().parkings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (q *memQueries) GetParkingByOwner(_ context.Context, userID string) (*db.Parking, error) {
	defer q.lock()()
	for _, p := range q.state().parkings {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (q *memQueries) GetVehicleStats(_ context.Context, vehicleID string) (*db.VehicleStats, error) {
	defer q.lock()()
	s, ok := q.state().stats[vehicleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (q *memQueries) IncrementReservationCount(_ context.Context, vehicleID string, at time.Time) error {
	defer q.lock()()
	s := q.state().stats[vehicleID]
	s.VehicleID, s.Reservations, s.UpdatedAt = vehicleID, s.Reservations+1, at
	q.state().stats[vehicleID] = s
	return nil
}

func (q *memQueries) DecrementReservationCount(_ context.Context, vehicleID string, at time.Time) (bool, error) {
	defer q.lock()()
	s, ok := q.state().stats[vehicleID]
	if !ok || s.Reservations == 0 {
		return false, nil
	}
	s.Reservations, s.UpdatedAt = s.Reservations-1, at
	q.state().stats[vehicleID] = s
	return true, nil
}

func (q *memQueries) SetReservationCount(_ context.Context, vehicleID string, n int, at time.Time) error {
	defer q.lock()()
	q.state().stats[vehicleID] = db.VehicleStats{VehicleID: vehicleID, Reservations: n, UpdatedAt: at}
	return nil
}

func (q *memQueries) CountAccepted(_ context.Context, vehicleID string) (int, error) {
	defer q.lock()()
	accepted := db.StatusAccepted
	return len(q.matching(repository.ReservationFilter{VehicleID: &vehicleID, Status: &accepted})), nil
}

// fakeStore is an in-memory Store. Transactions run one at a time and are
// undone when fn fails.
type fakeStore struct {
	memQueries
	mu    sync.Mutex
	st    *memState
	txLog int
}

func newFakeStore() *fakeStore {
	s := &fakeStore{st: &memState{
		reservations: map[string]db.Reservation{},
		vehicles:     map[string]db.Vehicle{},
		parkings:     map[string]db.Parking{},
		stats:        map[string]db.VehicleStats{},
	}}
	s.memQueries = memQueries{mu: &s.mu, st: &s.st}

	central, other := "p-central", "p-other"
	s.st.parkings[central] = db.Parking{ID: central, UserID: "u-owner", Name: "Central Parking"}
	s.st.parkings[other] = db.Parking{ID: other, UserID: "u-rival", Name: "Other Parking"}
	s.st.vehicles["v-rent"] = db.Vehicle{ID: "v-rent", ParkingID: &central, Price: decimal.NewFromInt(25000), Status: db.VehicleAvailable, ForRent: true}
	s.st.vehicles["v-sale"] = db.Vehicle{ID: "v-sale", ParkingID: &central, Price: decimal.NewFromInt(4500000), Status: db.VehicleAvailable, ForSale: true}
	s.st.vehicles["v-both"] = db.Vehicle{ID: "v-both", Price: decimal.RequireFromString("199.99"), Status: db.VehicleAvailable, ForRent: true, ForSale: true}
	return s
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txLog++
	saved := s.st.clone()
	if err := fn(&memQueries{st: &s.st}); err != nil {
		s.st = saved
		return err
	}
	return nil
}

func (s *fakeStore) vehicle(id string) db.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.vehicles[id]
}

func (s *fakeStore) statsOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stats[id].Reservations
}

func (s *fakeStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.reservations)
}

type sentNote struct {
	Owner    bool
	To       string
	Title    string
	Metadata map[string]string
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentNote
	err  error
}

func (d *recordingDispatcher) NotifyUser(_ context.Context, userID, title, _, _ string, metadata map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentNote{To: userID, Title: title, Metadata: metadata})
	return d.err
}

func (d *recordingDispatcher) NotifyOwner(_ context.Context, parkingID, title, _, _ string, metadata map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentNote{Owner: true, To: parkingID, Title: title, Metadata: metadata})
	return d.err
}

func (d *recordingDispatcher) reset() []sentNote {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.sent
	d.sent = nil
	return out
}
