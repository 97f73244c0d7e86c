// Package ledger records billable events with exactly-once semantics.
//
// Every chargeable operation carries an idempotency key derived from the
// operation kind and its canonical parameters. Charge commits the billing
// event under that key strictly before the work it pays for begins; a
// second Charge with the same key returns a Duplicate receipt with zero
// cost, and the caller serves the prior result instead of re-executing.
// The ordering guarantees a caller is never billed twice for one logical
// request, at the accepted cost of occasionally billing for work that
// subsequently fails.
//
// Two backends implement the Ledger contract:
//
//   - MemoryLedger: in-process map, suitable for single-instance runs and
//     tests. Charges do not survive a restart.
//   - PostgresLedger: durable ledger shared across gateway instances. The
//     exactly-once guarantee rides on a unique constraint over the
//     idempotency key, so concurrent gateways cannot double-charge.
//
// Prices are cents per event, replaceable at runtime through SetPrices;
// the pricing watcher feeds it on config changes. A charge uses the price
// table as of the moment it commits.
package ledger
