// Command circulationd serves the circulation tracker over HTTP.
//
// Configuration is taken from the environment:
//
//	HTTP_ADDR                listen address (default :8080)
//	STORAGE_ENGINE           postgres or badger (default postgres)
//	CIRCULATION_DB_URL       postgres DSN for the single-node setup
//	CIRCULATION_DB_PRIMARY_URL / CIRCULATION_DB_REPLICA_URL
//	                         postgres DSNs for the replicated setup
//	POSTGRES_REPLICA_ENABLED set to true to route reads to the replica
//	BADGER_PATH              data directory for the badger engine
//	REDIS_ADDR               when set, report snapshots live in redis
//	STAFF_ACTORS             comma-separated actor ids allowed to manage items
//	POLICY_CONFIG_PATH       yaml file with borrowing policies
//	OBSERVABILITY_ENABLED    set to true to export OTel telemetry
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stacksys/circulation-tracker-go/shell/config"
)

const (
	defaultHTTPAddr   = ":8080"
	defaultEngine     = "postgres"
	defaultBadgerPath = "./data/circulation"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config holds the process configuration resolved from the environment.
type Config struct {
	HTTPAddr             string
	StorageEngine        string
	BadgerPath           string
	ReplicaEnabled       bool
	RedisAddr            string
	StaffActors          []string
	ObservabilityEnabled bool
}

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := newObservability(cfg.ObservabilityEnabled)
	defer obs.shutdown()

	policies := config.MustLoadPolicySet()

	store, closeStore, err := openCirculationStore(ctx, cfg, obs)
	if err != nil {
		log.Fatalf("Failed to open circulation store: %v", err)
	}
	defer closeStore()

	api, err := buildAPI(cfg, store, policies, obs)
	if err != nil {
		log.Fatalf("Failed to wire the service: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("circulationd listening on %s (engine=%s)", cfg.HTTPAddr, cfg.StorageEngine)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	case serveErr := <-errChan:
		log.Printf("HTTP server failed: %v", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("Error during HTTP shutdown: %v", shutdownErr)
	}

	log.Printf("circulationd stopped")
}

func loadConfig() Config {
	return Config{
		HTTPAddr:             envOr("HTTP_ADDR", defaultHTTPAddr),
		StorageEngine:        envOr("STORAGE_ENGINE", defaultEngine),
		BadgerPath:           envOr("BADGER_PATH", defaultBadgerPath),
		ReplicaEnabled:       envBool("POSTGRES_REPLICA_ENABLED"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		StaffActors:          splitList(os.Getenv("STAFF_ACTORS")),
		ObservabilityEnabled: envBool("OBSERVABILITY_ENABLED"),
	}
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
