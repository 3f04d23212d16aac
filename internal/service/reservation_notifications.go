package service

import (
	"context"
	"fmt"
	"strings"

	"parkingapp/internal/db"
	applog "parkingapp/internal/log"
)

const categoryReservation = "RESERVATION"

// Dispatcher delivers notifications. Calls are best-effort: a returned error
// is logged and never undoes the reservation change.
type Dispatcher interface {
	NotifyUser(ctx context.Context, userID, title, body, category string, metadata map[string]string) error
	NotifyOwner(ctx context.Context, parkingID, title, body, category string, metadata map[string]string) error
}

// Notification is one message to send. Exactly one of UserID and ParkingID
// is set.
type Notification struct {
	UserID    string
	ParkingID string
	Title     string
	Body      string
	Category  string
	Metadata  map[string]string
}

func reservationMetadata(r *db.Reservation) map[string]string {
	return map[string]string{
		"reservationId": r.ID,
		"vehicleId":     r.VehicleID,
		"type":          string(r.Type),
		"status":        string(r.Status),
	}
}

func typeLabel(t db.ReservationType) string {
	if t == db.TypeRental {
		return "rental"
	}
	return "purchase"
}

func creationNotifications(r *db.Reservation, v *db.Vehicle) []Notification {
	out := []Notification{{
		UserID:   r.UserID,
		Title:    "Reservation submitted",
		Body:     fmt.Sprintf("Your %s request for vehicle %s is pending approval.", typeLabel(r.Type), r.VehicleID),
		Category: categoryReservation,
		Metadata: reservationMetadata(r),
	}}
	if v.ParkingID != nil {
		out = append(out, Notification{
			ParkingID: *v.ParkingID,
			Title:     "New reservation request",
			Body:      fmt.Sprintf("A client requested a %s of vehicle %s.", typeLabel(r.Type), r.VehicleID),
			Category:  categoryReservation,
			Metadata:  reservationMetadata(r),
		})
	}
	return out
}

// transitionNotifications tells the requester about r's new status, and the
// parking owner too when somebody else made the change.
func transitionNotifications(r *db.Reservation, v *db.Vehicle, actor db.Actor) []Notification {
	status := strings.ToLower(string(r.Status))
	body := fmt.Sprintf("Your %s reservation for vehicle %s was %s.", typeLabel(r.Type), r.VehicleID, status)
	if r.StatusReason != nil && *r.StatusReason != "" {
		body += " Reason: " + *r.StatusReason
	}
	meta := reservationMetadata(r)
	meta["changedByRole"] = string(actor.Role)

	out := []Notification{{
		UserID:   r.UserID,
		Title:    "Reservation " + status,
		Body:     body,
		Category: categoryReservation,
		Metadata: meta,
	}}
	if actor.Role != db.RoleParking && v.ParkingID != nil {
		out = append(out, Notification{
			ParkingID: *v.ParkingID,
			Title:     "Reservation " + status,
			Body:      fmt.Sprintf("Reservation %s for vehicle %s is now %s (changed by %s).", r.ID, r.VehicleID, r.Status, strings.ToLower(string(actor.Role))),
			Category:  categoryReservation,
			Metadata:  meta,
		})
	}
	return out
}

func (s *ReservationService) dispatch(ctx context.Context, notes []Notification) {
	if s.Dispatcher == nil {
		return
	}
	for _, n := range notes {
		var err error
		if n.ParkingID != "" {
			err = s.Dispatcher.NotifyOwner(ctx, n.ParkingID, n.Title, n.Body, n.Category, n.Metadata)
		} else {
			err = s.Dispatcher.NotifyUser(ctx, n.UserID, n.Title, n.Body, n.Category, n.Metadata)
		}
		if err != nil {
			applog.Error(ctx, "notification.dispatch.fail", err, map[string]any{
				"user_id":    n.UserID,
				"parking_id": n.ParkingID,
				"title":      n.Title,
			})
		}
	}
}
