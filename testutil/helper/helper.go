// Package helper provides arrange-phase helpers shared by feature tests.
package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// TestActor is the staff identity used to arrange catalog state in tests.
const TestActor = "test-librarian"

// CommandStore is the store surface the arrange helpers drive commands
// through. Both engines implement it.
type CommandStore interface {
	LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error)
	CountOpenLoans(ctx context.Context, borrower string, itemType string) (int, error)
	ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error
}

// GivenUniqueItemCode returns an item code no other test run uses.
func GivenUniqueItemCode(t testing.TB) string {
	t.Helper()

	return "ITEM-" + uuid.NewString()
}

// GivenUniqueBorrower returns a borrower id no other test run uses.
func GivenUniqueBorrower(t testing.TB) string {
	t.Helper()

	return "borrower-" + uuid.NewString()
}

// GivenTestPolicies builds the policy set the feature tests run under:
// books allow 3 concurrent loans for 14 days with up to 2 renewals,
// magazines forbid renewal.
func GivenTestPolicies(t testing.TB) core.PolicySet {
	t.Helper()

	policies, err := core.BuildPolicySet(
		core.BorrowingPolicy{
			MaxConcurrentLoans: 3,
			LoanPeriod:         14 * 24 * time.Hour,
			AllowRenewal:       true,
			MaxRenewals:        2,
		},
		core.BorrowingPolicy{
			ItemType:           "book",
			MaxConcurrentLoans: 3,
			LoanPeriod:         14 * 24 * time.Hour,
			AllowRenewal:       true,
			MaxRenewals:        2,
		},
		core.BorrowingPolicy{
			ItemType:           "magazine",
			MaxConcurrentLoans: 5,
			LoanPeriod:         7 * 24 * time.Hour,
			AllowRenewal:       false,
			MaxRenewals:        0,
		},
	)
	require.NoError(t, err, "error in arranging test policies")

	return policies
}

// GivenRegisteredItem registers an item through the real command path.
func GivenRegisteredItem(t testing.TB, ctx context.Context, store CommandStore, itemCode string, itemType string) {
	t.Helper()

	command, err := registeritem.BuildCommand(itemCode, itemType, "Test Title", "Test Creator", TestActor, time.Now())
	require.NoError(t, err, "error in arranging test data")

	handler := registeritem.NewCommandHandler(store, GivenTestPolicies(t), shell.NewStaticCapabilityChecker(TestActor))

	_, err = handler.Handle(ctx, command)
	require.NoError(t, err, "error in arranging test data")
}

// GivenCheckedOutItem registers an item and checks it out to the borrower.
func GivenCheckedOutItem(t testing.TB, ctx context.Context, store CommandStore, itemCode string, itemType string, borrower string) {
	t.Helper()

	GivenRegisteredItem(t, ctx, store, itemCode, itemType)

	command, err := checkoutitem.BuildCommand(itemCode, borrower, time.Now())
	require.NoError(t, err, "error in arranging test data")

	handler := checkoutitem.NewCommandHandler(store, GivenTestPolicies(t))

	_, err = handler.Handle(ctx, command)
	require.NoError(t, err, "error in arranging test data")
}
