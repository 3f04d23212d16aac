package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"parkingapp/internal/auth"
	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
	applog "parkingapp/internal/log"
	"parkingapp/internal/repository"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError renders err. Anything outside the error taxonomy is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var he *apperr.HTTPError
	if errors.As(err, &he) {
		apperr.Render(w, he)
		return
	}
	applog.Error(r.Context(), "request.fail", err, nil)
	apperr.Render(w, apperr.ErrInternal)
}

// decode reads a JSON body into dst and validates its tags.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.ErrValidation.WithMessage("invalid request body: " + err.Error())
	}
	if err := v.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperr.ErrValidation
		}
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return apperr.ErrValidation.WithMessage("invalid fields: " + strings.Join(fields, ", "))
	}
	return nil
}

func actorOf(r *http.Request) (db.Actor, error) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		return db.Actor{}, apperr.ErrUnauthorized
	}
	return actor, nil
}

// parseFilter reads the list query parameters.
func parseFilter(r *http.Request) (repository.ReservationFilter, error) {
	q := r.URL.Query()
	var f repository.ReservationFilter

	if s := q.Get("status"); s != "" {
		status := db.ReservationStatus(s)
		if !status.Valid() {
			return f, apperr.ErrInvalidStatus
		}
		f.Status = &status
	}
	if s := q.Get("type"); s != "" {
		t := db.ReservationType(s)
		if !t.Valid() {
			return f, apperr.ErrValidation.WithMessage("type must be PURCHASE or RENTAL")
		}
		f.Type = &t
	}
	if s := q.Get("vehicleId"); s != "" {
		f.VehicleID = &s
	}
	if s := q.Get("userId"); s != "" {
		f.UserID = &s
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, apperr.ErrValidation.WithMessage("limit must be an integer")
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, apperr.ErrValidation.WithMessage("offset must be an integer")
	}
	return f, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
