package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
)

var commissionRate = decimal.New(10, -2)

// CheckEligibility decides whether vehicle v can be reserved as type t for
// the given window. It has no side effects.
func CheckEligibility(v *db.Vehicle, t db.ReservationType, start, end *time.Time) error {
	switch t {
	case db.TypePurchase:
		if !v.ForSale {
			return apperr.ErrIneligibleType.WithMessage(fmt.Sprintf("vehicle %s is not for sale", v.ID))
		}
	case db.TypeRental:
		if !v.ForRent {
			return apperr.ErrIneligibleType.WithMessage(fmt.Sprintf("vehicle %s is not for rent", v.ID))
		}
	default:
		return apperr.ErrValidation.WithMessage(fmt.Sprintf("unknown reservation type %q", t))
	}

	if v.Status != db.VehicleAvailable {
		return apperr.ErrVehicleUnavailable.WithMessage(fmt.Sprintf("vehicle %s is %s", v.ID, v.Status))
	}

	if t == db.TypeRental && (start == nil || end == nil || !start.Before(*end)) {
		return apperr.ErrInvalidDateRange
	}
	return nil
}

// commissionFor is the platform cut frozen on the reservation at creation.
func commissionFor(v *db.Vehicle, t db.ReservationType) decimal.NullDecimal {
	if t != db.TypeRental {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v.Price.Mul(commissionRate).Round(2))
}
