package api

import "time"

// CreateReservationRequest is the body of POST /reservations and of
// POST /availability.
type CreateReservationRequest struct {
	VehicleID string     `json:"vehicleId" validate:"required,max=64"`
	Type      string     `json:"type" validate:"required,oneof=PURCHASE RENTAL"`
	DateStart *time.Time `json:"dateStart"`
	DateEnd   *time.Time `json:"dateEnd"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
