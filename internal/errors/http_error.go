package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code and a
// stable reason that clients can switch on.
type HTTPError struct {
	Code    int
	Reason  string
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches on Reason so a sentinel still matches after WithMessage.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Reason == e.Reason
}

// WithMessage returns a copy carrying a more specific message.
func (e *HTTPError) WithMessage(msg string) *HTTPError {
	return &HTTPError{Code: e.Code, Reason: e.Reason, Message: msg}
}

// NewHTTPError creates a new HTTPError with the given code, reason and message.
func NewHTTPError(code int, reason, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

var (
	ErrValidation               = NewHTTPError(http.StatusBadRequest, "VALIDATION_ERROR", "invalid input")
	ErrInvalidDateRange         = NewHTTPError(http.StatusBadRequest, "INVALID_DATE_RANGE", "dateStart and dateEnd are required and dateStart must be before dateEnd")
	ErrInvalidStatus            = NewHTTPError(http.StatusBadRequest, "INVALID_STATUS", "status must be one of PENDING, ACCEPTED, CANCELED")
	ErrIneligibleType           = NewHTTPError(http.StatusUnprocessableEntity, "INELIGIBLE_TYPE", "vehicle is not offered for this reservation type")
	ErrUnauthorized             = NewHTTPError(http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
	ErrForbidden                = NewHTTPError(http.StatusForbidden, "FORBIDDEN", "not allowed")
	ErrNotFound                 = NewHTTPError(http.StatusNotFound, "NOT_FOUND", "not found")
	ErrIllegalTransition        = NewHTTPError(http.StatusConflict, "ILLEGAL_TRANSITION", "status transition not allowed")
	ErrDateConflict             = NewHTTPError(http.StatusConflict, "DATE_CONFLICT", "vehicle already reserved for an overlapping period")
	ErrCancellationWindowClosed = NewHTTPError(http.StatusConflict, "CANCELLATION_WINDOW_CLOSED", "rentals can only be canceled more than 24 hours before the start date")
	ErrConflict                 = NewHTTPError(http.StatusConflict, "CONFLICT", "reservation was modified concurrently")
	ErrVehicleUnavailable       = NewHTTPError(http.StatusConflict, "VEHICLE_UNAVAILABLE", "vehicle is not available")
	ErrInternal                 = NewHTTPError(http.StatusInternalServerError, "INTERNAL", "something went wrong, please try again")
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Render writes e as the JSON error body with its status code.
func Render(w http.ResponseWriter, e *HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(errorBody{Error: e.Reason, Message: e.Message})
}
