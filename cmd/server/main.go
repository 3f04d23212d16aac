package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"parkingapp/internal/api"
	"parkingapp/internal/config"
	"parkingapp/internal/repository"
	"parkingapp/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if cfg.SeedDemo {
		if err := repository.Seed(ctx, db, repository.DemoFixtures()); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	store := repository.NewSQLStore(db)
	notifier := service.NewNotificationService(repository.NewContactRepository(db), cfg)
	svc := service.NewReservationService(store, notifier)
	jobs := service.NewJobService(store, svc, cfg.PendingPurchaseTTL)

	c := cron.New()
	if err := jobs.Schedule(c, cfg.ExpireSchedule, cfg.ReconcileSchedule); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	c.Start()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(svc, api.RouterConfig{
			JWTSecret:      cfg.JWTSecret,
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
			AccessLog:      os.Stdout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	<-c.Stop().Done()
	notifier.Wait()
	log.Println("Server stopped")
}
