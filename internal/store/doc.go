// Package store provides durable storage for the inventory core.
//
// SQLite with WAL mode backs four tables: products, movements, orders (with
// order_items), and purchase_orders. All quantity-bearing writes happen
// inside a single transaction so the product row and the movement describing
// its change commit together or not at all.
package store
