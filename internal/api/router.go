package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"parkingapp/internal/auth"
	applog "parkingapp/internal/log"
	"parkingapp/internal/service"
)

type RouterConfig struct {
	JWTSecret      string
	CORSOrigins    []string
	RequestTimeout time.Duration
	AccessLog      io.Writer
}

// NewRouter builds the HTTP surface of the reservation service.
func NewRouter(svc *service.ReservationService, cfg RouterConfig) http.Handler {
	userHandler := NewUserReservationHandler(svc)
	adminHandler := NewAdminHandler(svc)

	r := mux.NewRouter()
	r.Use(requestContext(cfg.RequestTimeout))

	// Public endpoints
	r.HandleFunc("/healthz", health).Methods(http.MethodGet)
	r.HandleFunc("/availability", userHandler.CheckAvailability).Methods(http.MethodPost)

	// Authenticated endpoints
	private := r.NewRoute().Subrouter()
	private.Use(auth.Middleware(cfg.JWTSecret))
	private.HandleFunc("/reservations", userHandler.CreateReservation).Methods(http.MethodPost)
	private.HandleFunc("/reservations", userHandler.ListReservations).Methods(http.MethodGet)
	private.HandleFunc("/reservations/parking/all", adminHandler.ListParkingReservations).Methods(http.MethodGet)
	private.HandleFunc("/reservations/admin/all", adminHandler.ListReservations).Methods(http.MethodGet)
	private.HandleFunc("/reservations/{id}", userHandler.GetReservation).Methods(http.MethodGet)
	private.HandleFunc("/reservations/{id}", adminHandler.AdminDeleteReservation).Methods(http.MethodDelete)
	private.HandleFunc("/reservations/{id}/status", userHandler.UpdateStatus).Methods(http.MethodPut)
	private.HandleFunc("/vehicles/{id}/stats", adminHandler.VehicleStats).Methods(http.MethodGet)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
	)(h)
	if cfg.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(cfg.AccessLog, h)
	}
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

// requestContext tags the request with an id for the logs and bounds it
// with the configured timeout.
func requestContext(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := applog.WithRequest(r.Context(), id, r.Method, r.URL.Path)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
