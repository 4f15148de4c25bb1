package badgerengine

import (
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

const logMsgValueLogGCFailed = "badger value log gc failed"

var ErrInvalidGCInterval = errors.New("gc interval must be positive")
var ErrInvalidGCDiscardRatio = errors.New("gc discard ratio must be in (0, 1]")

// GCRunner periodically reclaims space in Badger's value log. Badger does
// not garbage collect the value log on its own, so long-running processes
// with a persistent store should keep one GCRunner per store.
type GCRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   circstore.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewGCRunner creates a garbage collection runner for the store's database.
// interval is the time between GC passes. ratio is Badger's discard ratio:
// a value log file is rewritten when at least that fraction of its space can
// be reclaimed.
func NewGCRunner(store *CirculationStore, interval time.Duration, ratio float64) (*GCRunner, error) {
	if store == nil || store.db == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	if interval <= 0 {
		return nil, ErrInvalidGCInterval
	}

	if ratio <= 0 || ratio > 1 {
		return nil, ErrInvalidGCDiscardRatio
	}

	return &GCRunner{
		db:       store.db,
		interval: interval,
		ratio:    ratio,
		logger:   store.logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the GC loop in its own goroutine.
func (r *GCRunner) Start() {
	go r.run()
}

// Stop terminates the GC loop and waits for it to finish.
func (r *GCRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *GCRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.collect()
		case <-r.stopCh:
			return
		}
	}
}

// collect rewrites value log files until Badger reports nothing left worth
// rewriting. ErrNoRewrite is the normal end of a pass, not a failure.
func (r *GCRunner) collect() {
	for {
		err := r.db.RunValueLogGC(r.ratio)
		if err == nil {
			continue
		}

		if !errors.Is(err, badger.ErrNoRewrite) && r.logger != nil {
			r.logger.Warn(logMsgValueLogGCFailed, logAttrError, err.Error())
		}

		return
	}
}
