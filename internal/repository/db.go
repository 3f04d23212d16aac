package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database and makes sure the schema exists. SQLite
// in-memory databases are pinned to one connection so every caller sees the
// same data and write transactions are serialized.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[db] connected driver=%s", driver)
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	ts := "TIMESTAMPTZ"
	if db.DriverName() == DriverSQLite {
		// modernc only converts columns declared TIMESTAMP back into time.Time.
		ts = "TIMESTAMP"
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL CHECK (role IN ('CLIENT','PARKING','ADMIN'))
)`,
		`CREATE TABLE IF NOT EXISTS parkings(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
  name TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS vehicles(
  id TEXT PRIMARY KEY,
  parking_id TEXT REFERENCES parkings(id),
  price NUMERIC NOT NULL CHECK (price >= 0),
  status TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN ('AVAILABLE','UNAVAILABLE','IN_MAINTENANCE')),
  for_sale BOOLEAN NOT NULL DEFAULT FALSE,
  for_rent BOOLEAN NOT NULL DEFAULT FALSE
)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vehicle_stats(
  vehicle_id TEXT PRIMARY KEY REFERENCES vehicles(id) ON DELETE CASCADE,
  reservations INTEGER NOT NULL DEFAULT 0 CHECK (reservations >= 0),
  updated_at %s NOT NULL
)`, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS reservations(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
  type TEXT NOT NULL CHECK (type IN ('PURCHASE','RENTAL')),
  date_start %[1]s,
  date_end %[1]s,
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','ACCEPTED','CANCELED')),
  commission NUMERIC,
  status_reason TEXT,
  created_at %[1]s NOT NULL,
  updated_at %[1]s NOT NULL
)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_reservations_vehicle_status ON reservations(vehicle_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
