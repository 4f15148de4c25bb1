package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/features/command/renewloan"
	"github.com/stacksys/circulation-tracker-go/features/command/retireitem"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/features/command/setitemcondition"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowerloans"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowingtrend"
	"github.com/stacksys/circulation-tracker-go/features/query/itemtypedistribution"
	"github.com/stacksys/circulation-tracker-go/features/query/listitems"
	"github.com/stacksys/circulation-tracker-go/features/query/overduereport"
	"github.com/stacksys/circulation-tracker-go/scan"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// ErrMissingDependency is returned by NewAPI when a required handler is absent.
var ErrMissingDependency = errors.New("httpapi dependency must not be nil")

// ItemReader loads the item state attached to operation results.
type ItemReader interface {
	LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error)
}

// Dependencies bundles everything the API serves. Command handlers are taken
// as the core handler contracts so both bare handlers and their observable
// wrappers fit; the same holds for query handlers and their report-cache
// wrappers.
type Dependencies struct {
	CheckOutItem     shell.CoreCommandHandler[checkoutitem.Command]
	ReturnItem       shell.CoreCommandHandler[returnitem.Command]
	RenewLoan        shell.CoreCommandHandler[renewloan.Command]
	RegisterItem     shell.CoreCommandHandler[registeritem.Command]
	RetireItem       shell.CoreCommandHandler[retireitem.Command]
	SetItemCondition shell.CoreCommandHandler[setitemcondition.Command]

	ScanIntake scan.Intake

	ListItems            shell.CoreQueryHandler[listitems.Query, listitems.ItemList]
	OverdueReport        shell.CoreQueryHandler[overduereport.Query, overduereport.OverdueReport]
	ItemTypeDistribution shell.CoreQueryHandler[itemtypedistribution.Query, itemtypedistribution.ItemTypeDistribution]
	BorrowingTrend       shell.CoreQueryHandler[borrowingtrend.Query, borrowingtrend.BorrowingTrend]
	BorrowerLoans        shell.CoreQueryHandler[borrowerloans.Query, borrowerloans.BorrowerLoans]

	// Items supplies the post-operation item view on command responses.
	Items ItemReader

	// Journal backs the health endpoint's storage probe.
	Journal shell.ReadsJournalSequence
}

// API is the HTTP facade over the circulation feature slices.
type API struct {
	deps             Dependencies
	logger           shell.Logger
	contextualLogger shell.ContextualLogger
}

// Option configures an API.
type Option func(*API)

// WithLogging sets the basic logger for the API.
func WithLogging(logger shell.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithContextualLogging sets the contextual logger for the API.
func WithContextualLogging(logger shell.ContextualLogger) Option {
	return func(a *API) {
		a.contextualLogger = logger
	}
}

// NewAPI creates the HTTP facade over the given handlers.
func NewAPI(deps Dependencies, opts ...Option) (*API, error) {
	switch {
	case deps.CheckOutItem == nil,
		deps.ReturnItem == nil,
		deps.RenewLoan == nil,
		deps.RegisterItem == nil,
		deps.RetireItem == nil,
		deps.SetItemCondition == nil,
		deps.ListItems == nil,
		deps.OverdueReport == nil,
		deps.ItemTypeDistribution == nil,
		deps.BorrowingTrend == nil,
		deps.BorrowerLoans == nil,
		deps.Items == nil,
		deps.Journal == nil:

		return nil, ErrMissingDependency
	}

	api := &API{deps: deps}

	for _, opt := range opts {
		opt(api)
	}

	return api, nil
}

// Router builds the chi router with all circulation routes mounted.
func (a *API) Router() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Route("/circulation", func(r chi.Router) {
		r.Post("/checkout", a.handleCheckout)
		r.Post("/return", a.handleReturn)
		r.Post("/renew", a.handleRenew)
	})

	router.Post("/scans", a.handleScan)

	router.Route("/items", func(r chi.Router) {
		r.Get("/", a.handleListItems)
		r.Post("/", a.handleRegisterItem)
		r.Post("/{code}/retire", a.handleRetireItem)
		r.Post("/{code}/condition", a.handleSetItemCondition)
	})

	router.Route("/reports", func(r chi.Router) {
		r.Get("/overdue", a.handleOverdueReport)
		r.Get("/distribution", a.handleItemTypeDistribution)
		r.Get("/trend", a.handleBorrowingTrend)
	})

	router.Get("/borrowers/{id}/loans", a.handleBorrowerLoans)

	router.Get("/healthz", a.handleHealth)

	return router
}

// handleHealth probes storage through the journal so a dead database turns
// the instance unready instead of failing every request individually.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := a.deps.Journal.LatestJournalSequence(r.Context()); err != nil {
		a.respondError(w, r, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
