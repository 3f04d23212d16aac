package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"parkingapp/internal/db"
)

type SeedUser struct {
	db.UserContact
	Role db.Role
}

type Fixtures struct {
	Users    []SeedUser
	Parkings []db.Parking
	Vehicles []db.Vehicle
}

// DemoFixtures is a small marketplace for local runs: one client, one
// parking owner with two vehicles, one admin.
func DemoFixtures() Fixtures {
	parkingID := "p-central"
	return Fixtures{
		Users: []SeedUser{
			{UserContact: db.UserContact{ID: "u-client", Name: "Awa", Email: "awa@parking.test", Phone: "+22370000001"}, Role: db.RoleClient},
			{UserContact: db.UserContact{ID: "u-owner", Name: "Moussa", Email: "moussa@parking.test", Phone: "+22370000002"}, Role: db.RoleParking},
			{UserContact: db.UserContact{ID: "u-admin", Name: "Admin", Email: "admin@parking.test"}, Role: db.RoleAdmin},
		},
		Parkings: []db.Parking{{ID: parkingID, UserID: "u-owner", Name: "Central Parking"}},
		Vehicles: []db.Vehicle{
			{ID: "v-rent", ParkingID: &parkingID, Price: decimal.NewFromInt(25000), Status: db.VehicleAvailable, ForRent: true},
			{ID: "v-sale", ParkingID: &parkingID, Price: decimal.NewFromInt(4500000), Status: db.VehicleAvailable, ForSale: true},
		},
	}
}

// Seed inserts fixtures, skipping rows that already exist.
func Seed(ctx context.Context, conn *sqlx.DB, f Fixtures) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range f.Users {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users(id, name, email, phone, role) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`),
			u.ID, u.Name, u.Email, u.Phone, u.Role); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, p := range f.Parkings {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO parkings(id, user_id, name) VALUES (?, ?, ?)
			ON CONFLICT(id) DO NOTHING`),
			p.ID, p.UserID, p.Name); err != nil {
			return fmt.Errorf("seed parking %s: %w", p.ID, err)
		}
	}
	for _, v := range f.Vehicles {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO vehicles(id, parking_id, price, status, for_sale, for_rent) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`),
			v.ID, v.ParkingID, v.Price, v.Status, v.ForSale, v.ForRent); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Printf("[seed] users=%d parkings=%d vehicles=%d", len(f.Users), len(f.Parkings), len(f.Vehicles))
	return nil
}
