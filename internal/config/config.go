package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBDriver       string
	DatabaseURL    string
	JWTSecret      string
	CORSOrigins    []string
	RequestTimeout time.Duration

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ExpireSchedule     string
	ReconcileSchedule  string
	PendingPurchaseTTL time.Duration

	// SeedDemo loads the demo marketplace fixtures at startup.
	SeedDemo bool
}

// Load reads the environment, after merging an optional .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		DBDriver:          getenv("DB_DRIVER", "postgres"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "*")),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		SendGridFromName:  getenv("SENDGRID_FROM_NAME", "Parking App"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
		ExpireSchedule:    getenv("CRON_EXPIRE_SCHEDULE", "@every 15m"),
		ReconcileSchedule: getenv("CRON_RECONCILE_SCHEDULE", "@hourly"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PendingPurchaseTTL, err = getDuration("PENDING_PURCHASE_TTL", 720*time.Hour); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SEED_DEMO"); v != "" {
		if cfg.SeedDemo, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("invalid SEED_DEMO: %w", err)
		}
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL not set")
		}
	case "sqlite":
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "parkingapp.db?_txlock=immediate&_time_format=sqlite"
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET not set")
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s CORS_ORIGINS=%v REQUEST_TIMEOUT=%s SENDGRID=%t TWILIO=%t CRON_EXPIRE=%q CRON_RECONCILE=%q",
		cfg.Port, cfg.DBDriver, cfg.CORSOrigins, cfg.RequestTimeout,
		cfg.SendGridAPIKey != "", cfg.TwilioAccountSID != "", cfg.ExpireSchedule, cfg.ReconcileSchedule)
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
