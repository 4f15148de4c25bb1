// Package registeritem implements the Register Item use case.
//
// This feature adds a new item to the registry so it can circulate. It
// follows the Load-Decide-Execute pattern with proper separation between
// infrastructure concerns (CommandHandler) and pure business logic (Decide
// function).
//
// Registration is privileged: the handler consults the capability port for
// the requesting actor before anything else. The business logic refuses
// duplicate item codes and item types without a configured borrowing policy.
// Two racing registrations of the same code settle through the store's
// insert conflict: the loser re-reads and rejects the duplicate cleanly.
package registeritem
