// Command load-generator drives realistic circulation traffic against a
// store, for dashboard demos and capacity checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/circstore/oteladapters"
	"github.com/stacksys/circulation-tracker-go/circstore/postgresengine"
	"github.com/stacksys/circulation-tracker-go/shell/config"
)

const (
	defaultRate            = 30
	defaultInitialItems    = 1000
	defaultScenarioWeights = "10,90" // catalog, circulation
)

// Config holds the load generator settings from the command line.
type Config struct {
	Rate                 int
	ObservabilityEnabled bool
	InitialItems         int
	ScenarioWeights      []int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pgxPool, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolSingleConfig())
	if err != nil {
		log.Fatalf("Failed to create pgx pool: %v", err)
	}
	defer pgxPool.Close()

	if err := pgxPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var storeOptions []postgresengine.Option
	obsConfig := cfg.NewObservabilityConfig()
	if obsConfig.ContextualLogger != nil {
		storeOptions = append(storeOptions, postgresengine.WithContextualLogger(obsConfig.ContextualLogger))
	}
	if obsConfig.MetricsCollector != nil {
		storeOptions = append(storeOptions, postgresengine.WithMetrics(obsConfig.MetricsCollector))
	}
	if obsConfig.TracingCollector != nil {
		storeOptions = append(storeOptions, postgresengine.WithTracing(obsConfig.TracingCollector))
	}

	store, err := postgresengine.NewCirculationStoreFromPGXPool(pgxPool, storeOptions...)
	if err != nil {
		log.Fatalf("Failed to create circulation store: %v", err)
	}

	policies := config.MustLoadPolicySet()
	loadGen := NewLoadGenerator(store, policies, cfg)

	if err := loadGen.SeedItems(ctx); err != nil {
		log.Fatalf("Failed to seed items: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := loadGen.Start(ctx); runErr != nil {
			errChan <- fmt.Errorf("load generator failed: %w", runErr)
		}
	}()

	log.Printf("Circulation load generator started")
	log.Printf("Configuration: rate=%d req/s, initial_items=%d, scenario_weights=%v",
		cfg.Rate, cfg.InitialItems, cfg.ScenarioWeights)
	log.Printf("Press Ctrl+C to stop...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case err := <-errChan:
		log.Printf("Error occurred: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Load generator stopped")
}

func parseFlags() Config {
	var (
		rateFlag        = flag.Int("rate", defaultRate, "Requests per second")
		observability   = flag.Bool("observability-enabled", false, "Enable OpenTelemetry observability")
		initialItems    = flag.Int("initial-items", defaultInitialItems, "Number of items to register initially")
		scenarioWeights = flag.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for catalog,circulation scenarios")
	)

	flag.Parse()

	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		log.Fatalf("Invalid scenario weights '%s': %v", *scenarioWeights, err)
	}

	return Config{
		Rate:                 *rateFlag,
		ObservabilityEnabled: *observability,
		InitialItems:         *initialItems,
		ScenarioWeights:      weights,
	}
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected 2 weights, got %d", len(parts))
	}

	weights := make([]int, 2)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}

// ObservabilityConfig holds the observability adapters for the store and handlers.
type ObservabilityConfig struct {
	ContextualLogger circstore.ContextualLogger
	MetricsCollector circstore.MetricsCollector
	TracingCollector circstore.TracingCollector
}

// NewObservabilityConfig creates the OpenTelemetry adapters when enabled.
func (c Config) NewObservabilityConfig() ObservabilityConfig {
	if !c.ObservabilityEnabled {
		return ObservabilityConfig{}
	}

	if _, err := config.NewObservabilityConfig("circulation-load-generator"); err != nil {
		log.Printf("Failed to create observability providers: %v", err)
		return ObservabilityConfig{}
	}

	return ObservabilityConfig{
		ContextualLogger: oteladapters.NewSlogBridgeLogger("circulation-load-generator"),
		MetricsCollector: oteladapters.NewMetricsCollector(otel.Meter("circulation-load-generator")),
		TracingCollector: oteladapters.NewTracingCollector(otel.Tracer("circulation-load-generator")),
	}
}
