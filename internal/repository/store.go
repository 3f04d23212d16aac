package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"parkingapp/internal/db"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleStatus is returned by a conditional status update whose
	// expected current status no longer matches.
	ErrStaleStatus = errors.New("status changed concurrently")
	// ErrReference is returned when an insert points at a missing row.
	ErrReference = errors.New("referenced record does not exist")
)

// ReservationFilter selects reservations for the list projections. Nil
// fields are not filtered on.
type ReservationFilter struct {
	UserID    *string
	VehicleID *string
	ParkingID *string
	Status    *db.ReservationStatus
	Type      *db.ReservationType
	Limit     int
	Offset    int
}

// Queries is everything the reservation core reads or writes. The same set
// is available on the store directly and inside a transaction.
type Queries interface {
	GetReservation(ctx context.Context, id string) (*db.Reservation, error)
	// GetReservationForUpdate reads a reservation and holds its row lock
	// until the surrounding transaction ends, where the database has one.
	GetReservationForUpdate(ctx context.Context, id string) (*db.Reservation, error)
	InsertReservation(ctx context.Context, res *db.Reservation) error
	// UpdateReservationStatus writes the new status only when the row is
	// still in status from. It returns ErrStaleStatus otherwise.
	UpdateReservationStatus(ctx context.Context, id string, from, to db.ReservationStatus, reason *string, at time.Time) error
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, f ReservationFilter) ([]db.Reservation, error)
	CountReservations(ctx context.Context, f ReservationFilter) (int64, error)
	ListAcceptedRentals(ctx context.Context, vehicleID string) ([]db.Reservation, error)
	ListStalePending(ctx context.Context, now time.Time, purchaseTTL time.Duration) ([]string, error)

	// LockVehicle serializes reservation writes for one vehicle until the
	// surrounding transaction ends.
	LockVehicle(ctx context.Context, vehicleID string) error
	GetVehicle(ctx context.Context, id string) (*db.Vehicle, error)
	SetVehicleStatus(ctx context.Context, id string, status db.VehicleStatus) error
	ListVehicleIDs(ctx context.Context) ([]string, error)

	GetParking(ctx context.Context, id string) (*db.Parking, error)
	GetParkingByOwner(ctx context.Context, userID string) (*db.Parking, error)

	GetVehicleStats(ctx context.Context, vehicleID string) (*db.VehicleStats, error)
	IncrementReservationCount(ctx context.Context, vehicleID string, at time.Time) error
	// DecrementReservationCount returns false when the counter was already
	// zero (or missing) and was left untouched.
	DecrementReservationCount(ctx context.Context, vehicleID string, at time.Time) (bool, error)
	SetReservationCount(ctx context.Context, vehicleID string, n int, at time.Time) error
	CountAccepted(ctx context.Context, vehicleID string) (int, error)
}

// Store is the persistence port of the reservation core.
type Store interface {
	Queries
	// WithinTx runs fn in one transaction, committed only if fn returns nil.
	WithinTx(ctx context.Context, fn func(q Queries) error) error
}

// SQLStore implements Store on Postgres or SQLite through sqlx.
type SQLStore struct {
	*sqlQueries
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{sqlQueries: &sqlQueries{ext: db, driver: db.DriverName()}, db: db}
}

func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(q Queries) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlQueries{ext: tx, driver: s.sqlQueries.driver}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlQueries struct {
	ext    sqlx.ExtContext
	driver string
}

func (q *sqlQueries) postgres() bool {
	return q.driver == DriverPostgres
}

func (q *sqlQueries) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (q *sqlQueries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q *sqlQueries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.ext.ExecContext(ctx, q.ext.Rebind(query), args...)
}

// mapWriteError turns driver constraint failures into repository errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
		return fmt.Errorf("%w: %s", ErrReference, pqErr.Constraint)
	}
	return err
}
