package repository

import (
	"context"
	"fmt"
	"time"

	"parkingapp/internal/db"
)

// ListStalePending returns the ids of PENDING reservations nobody acted on in
// time: rentals whose start has passed and purchases older than purchaseTTL.
// Times are compared in Go since SQLite stores them as text.
func (q *sqlQueries) ListStalePending(ctx context.Context, now time.Time, purchaseTTL time.Duration) ([]string, error) {
	var pending []db.Reservation
	err := q.selectAll(ctx, &pending, `SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.status = ?
		ORDER BY r.created_at, r.id`,
		db.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending reservations: %w", err)
	}

	ids := []string{}
	for _, r := range pending {
		switch r.Type {
		case db.TypeRental:
			if r.DateStart != nil && r.DateStart.Before(now) {
				ids = append(ids, r.ID)
			}
		case db.TypePurchase:
			if r.CreatedAt.Before(now.Add(-purchaseTTL)) {
				ids = append(ids, r.ID)
			}
		}
	}
	return ids, nil
}
