// Package ledger defines the domain types and error taxonomy shared by the
// inventory core: products, the append-only movement log, orders, purchase
// orders, alerts, and sync jobs.
//
// Types in this package are plain data. All mutation goes through
// internal/store and internal/engine so that the ledger invariants hold:
//
//   - Product quantities never go negative.
//   - Movements are append-only and replaying them from zero reproduces the
//     stored quantity for every SKU.
//   - Orders are immutable once fulfilled; rejected orders leave no trace in
//     the movement log.
package ledger
