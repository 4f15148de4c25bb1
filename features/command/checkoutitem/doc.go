// Package checkoutitem implements the Check Out Item use case.
//
// This feature lends an available item to a borrower and opens the loan that
// tracks it. It follows the Load-Decide-Execute pattern with proper separation
// between infrastructure concerns (CommandHandler) and pure business logic
// (Decide function).
//
// The business logic enforces the circulation constraints: the item must be
// registered and available, and the borrower must be under the per-item-type
// loan cap. A repeat checkout by the holding borrower is an idempotent no-op,
// so double scans never open a second loan. The open-loan cap is re-checked
// inside the committing transaction via the guarded transition record, so two
// racing checkouts cannot lift a borrower over the limit.
package checkoutitem
