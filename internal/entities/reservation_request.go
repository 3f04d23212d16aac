package entities

import (
	"time"

	"parkingapp/internal/db"
)

// ReservationRequest is the input of a reservation creation or an
// availability check.
type ReservationRequest struct {
	VehicleID string
	Type      db.ReservationType
	DateStart *time.Time
	DateEnd   *time.Time
}
