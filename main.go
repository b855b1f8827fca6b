package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreybb/hnwatch/api"
	"github.com/coreybb/hnwatch/datastore"
	"github.com/coreybb/hnwatch/delivery"
	"github.com/coreybb/hnwatch/dispatch"
	"github.com/coreybb/hnwatch/hackernews"
	"github.com/coreybb/hnwatch/retry"
	rh "github.com/coreybb/hnwatch/route-handlers"
	"github.com/coreybb/hnwatch/scheduler"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	defaultPort           = "8080"
	defaultDBDriver       = "sqlite"
	defaultSQLitePath     = "hnwatch.db"
	defaultPollWindow     = time.Hour
	defaultTickInterval   = time.Hour
	defaultContactEmail   = "admin@example.com"
	defaultAllowedOrigins = "http://localhost:5000,http://127.0.0.1:5000"
	dbPingTimeout         = 5 * time.Second
	schemaTimeout         = 10 * time.Second
	shutdownTimeout       = 15 * time.Second
)

type config struct {
	port            string
	dbDriver        string
	dbConnString    string
	vapidPublicKey  string
	vapidPrivateKey string
	vapidContact    string
	pollWindow      time.Duration
	tickInterval    time.Duration
	allowedOrigins  []string
}

func main() {
	cfg := loadConfig()

	store, cleanup, err := setupStore(cfg)
	if err != nil {
		log.Fatalf("Store setup failed: %v", err)
	}
	defer cleanup()

	vapid := delivery.VAPIDConfig{
		PublicKey:    cfg.vapidPublicKey,
		PrivateKey:   cfg.vapidPrivateKey,
		ContactEmail: cfg.vapidContact,
	}
	if !vapid.Valid() {
		log.Println("WARNING: VAPID keys not properly configured. Web push will fail until they are set.")
	}

	feedClient := hackernews.NewClient("", retry.DefaultPolicy())
	pushProvider := delivery.NewWebPushProvider(vapid)
	coordinator := dispatch.NewCoordinator(feedClient, store, pushProvider, cfg.pollWindow)
	dispatchScheduler := scheduler.New(coordinator, cfg.tickInterval)

	subscriptionHandler := rh.NewSubscriptionHandler(store, vapid.Valid())
	router := api.SetupRoutes(subscriptionHandler, dispatchScheduler, cfg.allowedOrigins)

	tickerCtx, stopTicker := context.WithCancel(context.Background())
	defer stopTicker()
	go dispatchScheduler.Start(tickerCtx)

	startServer(cfg.port, router)
}

func loadConfig() config {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = defaultDBDriver
	}

	connString := os.Getenv("DB_CONNECTION_STRING")
	if connString == "" && driver == "sqlite" {
		connString = defaultSQLitePath
	}
	if connString == "" && driver == "postgres" {
		log.Fatal("DB_CONNECTION_STRING is required when DB_DRIVER=postgres")
	}

	vapidPublic := os.Getenv("VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("VAPID_PRIVATE_KEY")
	if vapidPublic == "" || vapidPrivate == "" {
		log.Println("WARNING: VAPID_PUBLIC_KEY or VAPID_PRIVATE_KEY not set. Push delivery will be disabled.")
	}

	contact := os.Getenv("VAPID_CONTACT_EMAIL")
	if contact == "" {
		contact = defaultContactEmail
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = defaultAllowedOrigins
	}

	return config{
		port:            port,
		dbDriver:        driver,
		dbConnString:    connString,
		vapidPublicKey:  vapidPublic,
		vapidPrivateKey: vapidPrivate,
		vapidContact:    contact,
		pollWindow:      durationFromEnv("POLL_WINDOW", defaultPollWindow),
		tickInterval:    durationFromEnv("SCHEDULER_INTERVAL", defaultTickInterval),
		allowedOrigins:  splitOrigins(origins),
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("WARNING: Invalid %s %q, using default %v", key, raw, fallback)
		return fallback
	}
	return d
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// setupStore opens the configured subscription store and returns it with a
// cleanup function. DB_DRIVER=memory selects the non-durable in-memory
// store, useful for local development.
func setupStore(cfg config) (datastore.SubscriptionStore, func(), error) {
	if cfg.dbDriver == "memory" {
		log.Println("WARNING: Using in-memory subscription store. Subscriptions will not survive restarts.")
		return datastore.NewMemorySubscriptionStore(), func() {}, nil
	}

	db, err := sql.Open(cfg.dbDriver, cfg.dbConnString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := datastore.NewSubscriptionRepository(db)

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancelSchema()
	if err := repo.EnsureSchema(schemaCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	log.Printf("Database connection successful (%s)", cfg.dbDriver)
	return repo, func() { db.Close() }, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
