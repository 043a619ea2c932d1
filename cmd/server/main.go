package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/KyooRuss/Parking-Management/internal/server/api"
	"github.com/KyooRuss/Parking-Management/internal/server/config"
	"github.com/KyooRuss/Parking-Management/internal/server/events"
	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/server/services"
	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/KyooRuss/Parking-Management/pkg/version"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var rootCmd = &cobra.Command{
	Use:   "parking-server",
	Short: "Parking Management server - slot occupancy with transactional assignment",
	Long:  "Server component for Parking Management providing the HTTP API, live occupancy and the audit log",
	// Default to serve command if no subcommand provided
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the parking server",
	Run:   runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded Postgres migrations and exit",
	Run:   runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Println(version.GetVersionInfo())
			return
		}
		fmt.Println(version.GetVersion("parking-server"))
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show build details")
	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("=== Parking Management Server ===")
	log.Printf("%s", version.GetVersion("parking-server"))
	log.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Open the slot store
	log.Printf("=== Store Setup (%s) ===", cfg.StoreBackend)
	firebaseService := openFirebase(ctx, cfg)
	store, err := openStore(ctx, cfg, firebaseService)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Step 2: Side effects (all optional)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)
	publisher := openPublisher(cfg)
	alerts := openAlerter(cfg)

	parkingService := services.NewParkingService(store, publisher, alerts, metrics)
	defer parkingService.Close()

	hub := api.NewHub(func() interface{} {
		return models.OccupancyResponse{Categories: parkingService.AllOccupancy()}
	})
	defer hub.Close()
	parkingService.OnChange(func(s parking.Snapshot) {
		hub.BroadcastOccupancy(models.OccupancyResponse{Categories: s.AllOccupancy()})
	})

	// Step 3: Load state and follow the store
	log.Println("Loading slots, settings and logs...")
	if err := parkingService.Start(ctx); err != nil {
		log.Fatalf("Failed to load parking state: %v", err)
	}
	for _, occ := range parkingService.AllOccupancy() {
		log.Printf("%s: %s", occ.Category, parking.Describe(occ))
	}

	go parkingService.RunReconciler(ctx, cfg.ReconcileInterval)

	router := api.NewRouter(api.RouterConfig{
		Parking:  api.NewParkingHandler(parkingService),
		Hub:      hub,
		Verifier: identityVerifier(cfg, firebaseService),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrate(cmd *cobra.Command, args []string) {
	config.LoadEnv()

	db, err := storage.NewPostgresDB(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := runEmbeddedMigrations(db.DB.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete")
}

// openFirebase initializes Firebase when credentials are configured. It
// backs the Firestore store and identity verification.
func openFirebase(ctx context.Context, cfg *config.Config) *services.FirebaseService {
	if cfg.FirebaseCredentialsPath == "" {
		return nil
	}
	fb, err := services.NewFirebaseService(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase not configured: %v", err)
		return nil
	}
	log.Println("Firebase initialized")
	return fb
}

func openStore(ctx context.Context, cfg *config.Config, fb *services.FirebaseService) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		if fb == nil {
			return nil, fmt.Errorf("firestore backend requires Firebase credentials")
		}
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		log.Printf("Using Firestore store (%s/%s)", cfg.FirestoreRoot, cfg.FirestoreSite)
		return storage.NewFirestoreStore(client, cfg.FirestoreRoot, cfg.FirestoreSite), nil

	case config.BackendPostgres:
		log.Println("Connecting to database...")
		db, err := storage.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Running database migrations...")
		if err := runEmbeddedMigrations(db.DB.DB); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("Database connected")
		return storage.NewPostgresStore(db), nil
	}

	log.Println("Warning: using in-memory store, state is lost on restart")
	return storage.NewMemoryStore(), nil
}

func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.MQTTBrokerURL == "" {
		log.Println("MQTT not configured - slot events will not be published")
		return nil
	}
	pub, err := events.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		log.Printf("Warning: MQTT publisher unavailable: %v", err)
		return nil
	}
	log.Printf("Publishing slot events to %s", cfg.MQTTBrokerURL)
	return pub
}

func openAlerter(cfg *config.Config) services.Alerter {
	if len(cfg.AlertEmails) == 0 {
		log.Println("ALERT_EMAILS not set - operator alerts are disabled")
		return nil
	}
	emailService, err := services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail, cfg.AlertEmails)
	if err != nil {
		log.Printf("Warning: email alerts unavailable: %v", err)
		return nil
	}
	return emailService
}

func identityVerifier(cfg *config.Config, fb *services.FirebaseService) api.IdentityVerifier {
	if fb != nil {
		return fb
	}
	if cfg.JWTSecret != "" {
		return api.JWTVerifier{Secret: cfg.JWTSecret}
	}
	log.Println("No identity provider configured - park actions are anonymous unless the body names a user")
	return nil
}

func runEmbeddedMigrations(db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		log.Printf("Applying migration: %s", migration)

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", migration))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migration, err)
		}

		// Migrations are idempotent; a failure usually means the object exists.
		if _, err := db.Exec(string(content)); err != nil {
			log.Printf("Warning: Migration %s: %v (may already exist)", migration, err)
		}
	}

	return nil
}
