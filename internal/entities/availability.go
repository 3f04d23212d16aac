package entities

type AvailabilityResponse struct {
	Available                bool   `json:"available"`
	Reason                   string `json:"reason,omitempty"`
	Message                  string `json:"message,omitempty"`
	ConflictingReservationID string `json:"conflictingReservationId,omitempty"`
}
