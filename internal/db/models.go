package db

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationType string

const (
	TypePurchase ReservationType = "PURCHASE"
	TypeRental   ReservationType = "RENTAL"
)

func (t ReservationType) Valid() bool {
	return t == TypePurchase || t == TypeRental
}

type ReservationStatus string

const (
	StatusPending  ReservationStatus = "PENDING"
	StatusAccepted ReservationStatus = "ACCEPTED"
	StatusCanceled ReservationStatus = "CANCELED"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCanceled:
		return true
	}
	return false
}

type VehicleStatus string

const (
	VehicleAvailable     VehicleStatus = "AVAILABLE"
	VehicleUnavailable   VehicleStatus = "UNAVAILABLE"
	VehicleInMaintenance VehicleStatus = "IN_MAINTENANCE"
)

type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleParking Role = "PARKING"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleParking, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of a reservation operation.
type Actor struct {
	ID   string
	Role Role
}

type Reservation struct {
	ID           string              `db:"id"`
	UserID       string              `db:"user_id"`
	VehicleID    string              `db:"vehicle_id"`
	Type         ReservationType     `db:"type"`
	DateStart    *time.Time          `db:"date_start"`
	DateEnd      *time.Time          `db:"date_end"`
	Status       ReservationStatus   `db:"status"`
	Commission   decimal.NullDecimal `db:"commission"`
	StatusReason *string             `db:"status_reason"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

type Vehicle struct {
	ID        string          `db:"id"`
	ParkingID *string         `db:"parking_id"`
	Price     decimal.Decimal `db:"price"`
	Status    VehicleStatus   `db:"status"`
	ForSale   bool            `db:"for_sale"`
	ForRent   bool            `db:"for_rent"`
}

type VehicleStats struct {
	VehicleID    string    `db:"vehicle_id"`
	Reservations int       `db:"reservations"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type Parking struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
	Name   string `db:"name"`
}

// UserContact is what the notification channels need to reach a user.
type UserContact struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Phone string `db:"phone"`
}
