package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/KyooRuss/Parking-Management/pkg/utils"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config is the server configuration read from the environment.
type Config struct {
	StoreBackend string

	FirebaseCredentialsPath string
	FirestoreRoot           string
	FirestoreSite           string

	DatabaseURL string

	APIHost   string
	APIPort   string
	JWTSecret string

	ResendAPIKey string
	FromEmail    string
	AlertEmails  []string

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTTopicPrefix string

	ReconcileInterval time.Duration
}

// LoadEnv loads .env if present. A missing file only logs a warning.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreBackend:            strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		FirestoreRoot:           getEnv("FIRESTORE_ROOT", "parking-management"),
		FirestoreSite:           getEnv("FIRESTORE_SITE", "default"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		APIHost:                 getEnv("API_HOST", "0.0.0.0"),
		APIPort:                 getEnv("API_PORT", "8080"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		ResendAPIKey:            os.Getenv("RESEND_API_KEY"),
		FromEmail:               getEnv("FROM_EMAIL", "noreply@parking.local"),
		AlertEmails:             splitList(os.Getenv("ALERT_EMAILS")),
		MQTTBrokerURL:           os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:            getEnv("MQTT_CLIENT_ID", "parking-server"),
		MQTTTopicPrefix:         getEnv("MQTT_TOPIC_PREFIX", "parking"),
	}

	interval := getEnv("RECONCILE_INTERVAL", "5m")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL %q: %w", interval, err)
	}
	cfg.ReconcileInterval = d

	for _, email := range cfg.AlertEmails {
		if !utils.IsValidEmail(email) {
			return nil, fmt.Errorf("invalid address %q in ALERT_EMAILS", email)
		}
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendFirestore:
		if cfg.FirebaseCredentialsPath == "" {
			return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH not set")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP API.
func (c *Config) Addr() string {
	return c.APIHost + ":" + c.APIPort
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
