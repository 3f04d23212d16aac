package service

import (
	"time"

	"parkingapp/internal/db"
)

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// Both ends are inclusive: a rental ending at the instant another starts
// is a conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// FindConflict returns the first accepted rental in candidates whose window
// overlaps [start, end]. excludeID is skipped so a reservation never
// conflicts with itself.
func FindConflict(candidates []db.Reservation, start, end time.Time, excludeID string) (string, bool) {
	for _, c := range candidates {
		if c.ID == excludeID || c.Status != db.StatusAccepted || c.Type != db.TypeRental {
			continue
		}
		if c.DateStart == nil || c.DateEnd == nil {
			continue
		}
		if Overlaps(start, end, *c.DateStart, *c.DateEnd) {
			return c.ID, true
		}
	}
	return "", false
}
