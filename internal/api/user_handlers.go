package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"parkingapp/internal/db"
	"parkingapp/internal/entities"
	"parkingapp/internal/service"
)

// UserReservationHandler serves the requester side: creating, reading,
// listing and changing the status of reservations.
type UserReservationHandler struct {
	Service  *service.ReservationService
	validate *validator.Validate
}

func NewUserReservationHandler(svc *service.ReservationService) *UserReservationHandler {
	return &UserReservationHandler{Service: svc, validate: newValidator()}
}

func (h *UserReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.CheckAvailability(r.Context(), toReservationRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CreateReservationRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.Create(r.Context(), actor, toReservationRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Service.ListOwn(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationsList(page))
}

func (h *UserReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateStatusRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.UpdateStatus(r.Context(), actor, mux.Vars(r)["id"], req.Status, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func toReservationRequest(req CreateReservationRequest) entities.ReservationRequest {
	return entities.ReservationRequest{
		VehicleID: req.VehicleID,
		Type:      db.ReservationType(req.Type),
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
	}
}

func toReservationsList(page *service.ReservationPage) entities.ReservationsList {
	out := entities.ReservationsList{
		Total:        page.Total,
		Limit:        page.Limit,
		Offset:       page.Offset,
		Reservations: make([]entities.ReservationResponse, 0, len(page.Reservations)),
	}
	for i := range page.Reservations {
		out.Reservations = append(out.Reservations, entities.NewReservationResponse(&page.Reservations[i]))
	}
	return out
}
