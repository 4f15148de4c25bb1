package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stacksys/circulation-tracker-go/circstore/postgresengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/features/command/renewloan"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/features/command/setitemcondition"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// demoActor is the staff identity the generator uses for catalog operations.
const demoActor = "load-generator"

// operationTimeout bounds a single generated operation.
const operationTimeout = 5 * time.Second

var itemTypes = []string{"book", "dvd", "magazine"}

// LoadGenerator drives circulation traffic against the store at a configured
// rate. Business rule rejections are part of realistic traffic (double
// checkouts, returns of available items) and are counted separately from
// real errors.
type LoadGenerator struct {
	config Config

	checkOutHandler     checkoutitem.CommandHandler
	returnHandler       returnitem.CommandHandler
	renewHandler        renewloan.CommandHandler
	registerHandler     registeritem.CommandHandler
	setConditionHandler setitemcondition.CommandHandler

	limiter  *rate.Limiter
	stopChan chan struct{}
	wg       sync.WaitGroup

	requestCount   int64
	rejectionCount int64
	errorCount     int64
	startTime      time.Time
	mu             sync.RWMutex
}

// NewLoadGenerator creates a LoadGenerator over the given store and policies.
func NewLoadGenerator(store *postgresengine.CirculationStore, policies core.PolicySet, config Config) *LoadGenerator {
	capabilities := shell.NewStaticCapabilityChecker(demoActor)

	return &LoadGenerator{
		config:              config,
		checkOutHandler:     checkoutitem.NewCommandHandler(store, policies),
		returnHandler:       returnitem.NewCommandHandler(store),
		renewHandler:        renewloan.NewCommandHandler(store, policies),
		registerHandler:     registeritem.NewCommandHandler(store, policies, capabilities),
		setConditionHandler: setitemcondition.NewCommandHandler(store, capabilities),
		limiter:             rate.NewLimiter(rate.Limit(config.Rate), config.Rate),
		stopChan:            make(chan struct{}),
	}
}

// SeedItems registers the initial item population. Re-registering an existing
// item is an idempotent no-op, so reseeding an already populated store is
// harmless.
func (lg *LoadGenerator) SeedItems(ctx context.Context) error {
	log.Printf("Seeding %d items...", lg.config.InitialItems)

	for i := 1; i <= lg.config.InitialItems; i++ {
		command, err := registeritem.BuildCommand(
			itemCode(i),
			itemTypes[i%len(itemTypes)],
			fmt.Sprintf("Load Test Item %d", i),
			"Load Test Creator",
			demoActor,
			time.Now(),
		)
		if err != nil {
			return err
		}

		if _, err := lg.registerHandler.Handle(ctx, command); err != nil {
			return err
		}
	}

	log.Printf("Seeding complete")

	return nil
}

// Start begins load generation at the configured rate. It runs until the
// context is canceled or Stop is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.requestCount = 0
	lg.rejectionCount = 0
	lg.errorCount = 0
	lg.mu.Unlock()

	log.Printf("Load generator starting with %d requests/second, initial goroutines: %d",
		lg.config.Rate, runtime.NumGoroutine())

	lg.wg.Add(1)
	go lg.statsReporter(ctx)

	for {
		select {
		case <-lg.stopChan:
			log.Printf("Load generator stopping due to stop signal")
			return nil
		default:
		}

		if err := lg.limiter.Wait(ctx); err != nil {
			log.Printf("Load generator stopping due to context cancellation")
			return err
		}

		lg.wg.Add(1)
		go lg.executeScenario(ctx)
	}
}

// Stop gracefully shuts down the load generator.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	close(lg.stopChan)

	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logStats("Final Stats")
		return nil
	case <-ctx.Done():
		lg.logStats("Final Stats")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var err error
	if rand.Intn(100) < lg.config.ScenarioWeights[0] { //nolint:gosec // demo traffic, weak random is fine
		err = lg.runCatalogScenario(opCtx)
	} else {
		err = lg.runCirculationScenario(opCtx)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()

	lg.requestCount++

	if err == nil {
		return
	}

	if _, isRejection := core.AsRejection(err); isRejection {
		lg.rejectionCount++
		return
	}

	lg.errorCount++
	log.Printf("Scenario error: %v", err)
}

// runCatalogScenario registers items or toggles their condition, exercising
// the capability-checked command paths.
func (lg *LoadGenerator) runCatalogScenario(ctx context.Context) error {
	number := randomItemNumber(lg.config.InitialItems)

	if rand.Intn(2) == 0 { //nolint:gosec // demo traffic, weak random is fine
		command, err := registeritem.BuildCommand(
			itemCode(number),
			itemTypes[number%len(itemTypes)],
			fmt.Sprintf("Load Test Item %d", number),
			"Load Test Creator",
			demoActor,
			time.Now(),
		)
		if err != nil {
			return err
		}

		_, handleErr := lg.registerHandler.Handle(ctx, command)

		return handleErr
	}

	targetStatus := core.StatusMaintenance
	if rand.Intn(2) == 0 { //nolint:gosec // demo traffic, weak random is fine
		targetStatus = core.StatusAvailable
	}

	command, err := setitemcondition.BuildCommand(itemCode(number), string(targetStatus), demoActor, time.Now())
	if err != nil {
		return err
	}

	_, handleErr := lg.setConditionHandler.Handle(ctx, command)

	return handleErr
}

// runCirculationScenario checks items out, returns them, and renews loans for
// a pool of borrowers. Collisions (checking out a lent item, returning an
// available one) are intentional; they produce the rejection traffic a real
// circulation desk sees.
func (lg *LoadGenerator) runCirculationScenario(ctx context.Context) error {
	code := itemCode(randomItemNumber(lg.config.InitialItems))
	borrower := randomBorrower()

	switch rand.Intn(3) { //nolint:gosec // demo traffic, weak random is fine
	case 0:
		command, err := checkoutitem.BuildCommand(code, borrower, time.Now())
		if err != nil {
			return err
		}

		_, handleErr := lg.checkOutHandler.Handle(ctx, command)

		return handleErr

	case 1:
		command, err := returnitem.BuildCommand(code, time.Now())
		if err != nil {
			return err
		}

		_, handleErr := lg.returnHandler.Handle(ctx, command)

		return handleErr

	default:
		command, err := renewloan.BuildCommand(code, borrower, time.Now())
		if err != nil {
			return err
		}

		_, handleErr := lg.renewHandler.Handle(ctx, command)

		return handleErr
	}
}

func itemCode(number int) string {
	return fmt.Sprintf("ITEM-%06d", number)
}

func randomItemNumber(initialItems int) int {
	return rand.Intn(initialItems) + 1 //nolint:gosec // demo traffic, weak random is fine
}

func randomBorrower() string {
	return fmt.Sprintf("borrower-%03d", rand.Intn(100)+1) //nolint:gosec // demo traffic, weak random is fine
}

func (lg *LoadGenerator) statsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logStats("Stats")
		}
	}
}

func (lg *LoadGenerator) logStats(prefix string) {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	rejections := lg.rejectionCount
	errors := lg.errorCount
	lg.mu.RUnlock()

	if duration <= 0 || requests == 0 {
		return
	}

	rps := float64(requests) / duration.Seconds()
	rejectionRate := float64(rejections) / float64(requests) * 100
	errorRate := float64(errors) / float64(requests) * 100

	log.Printf("%s: %d requests in %v (%.1f req/s), %d rejections (%.1f%%), %d errors (%.1f%%), %d goroutines",
		prefix, requests, duration.Truncate(time.Second), rps,
		rejections, rejectionRate, errors, errorRate, runtime.NumGoroutine())
}
