package entities

import (
	"time"

	"parkingapp/internal/db"
)

type ReservationResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	VehicleID    string     `json:"vehicleId"`
	Type         string     `json:"type"`
	DateStart    *time.Time `json:"dateStart"`
	DateEnd      *time.Time `json:"dateEnd"`
	Status       string     `json:"status"`
	Commission   *string    `json:"commission"`
	StatusReason *string    `json:"statusReason,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func NewReservationResponse(r *db.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		VehicleID:    r.VehicleID,
		Type:         string(r.Type),
		DateStart:    r.DateStart,
		DateEnd:      r.DateEnd,
		Status:       string(r.Status),
		StatusReason: r.StatusReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Commission.Valid {
		c := r.Commission.Decimal.StringFixed(2)
		resp.Commission = &c
	}
	return resp
}

type VehicleStatsResponse struct {
	VehicleID    string `json:"vehicleId"`
	Reservations int    `json:"reservations"`
}
