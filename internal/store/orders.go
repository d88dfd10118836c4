package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stockd/internal/ledger"
)

// InsertOrderTx persists an order and its line items inside an open
// transaction. Fulfilled and rejected orders both land here; the caller's
// transaction decides whether any movements accompany them.
func (s *Store) InsertOrderTx(ctx context.Context, tx *sql.Tx, o ledger.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer, total, status, provenance, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.Customer, o.Total, string(o.Status), string(o.Provenance),
		o.Reason, toNanos(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, sku, quantity, unit_price)
			VALUES (?, ?, ?, ?)
		`, o.ID, it.SKU, it.Quantity, it.UnitPrice)
		if err != nil {
			return fmt.Errorf("insert order %s item %s: %w", o.ID, it.SKU, err)
		}
	}

	return nil
}

// GetOrder reads one order with its line items.
func (s *Store) GetOrder(ctx context.Context, id string) (ledger.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer, total, status, provenance, reason, created_at
		FROM orders WHERE id = ?
	`, id)

	var o ledger.Order
	var createdAt int64
	err := row.Scan(&o.ID, &o.Customer, &o.Total, (*string)(&o.Status),
		(*string)(&o.Provenance), &o.Reason, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Order{}, fmt.Errorf("order %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	o.CreatedAt = fromNanos(createdAt)

	items, err := s.orderItems(ctx, id)
	if err != nil {
		return ledger.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]ledger.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY sku
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s items: %w", orderID, err)
	}
	defer rows.Close()

	var items []ledger.LineItem
	for rows.Next() {
		var it ledger.LineItem
		if err := rows.Scan(&it.SKU, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("order %s items: scan: %w", orderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order %s items: %w", orderID, err)
	}
	return items, nil
}

// ListOrdersByStatus returns orders with the given status, newest first.
// An empty status returns all orders.
func (s *Store) ListOrdersByStatus(ctx context.Context, status ledger.OrderStatus) ([]ledger.Order, error) {
	query := `SELECT id, customer, total, status, provenance, reason, created_at FROM orders`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []ledger.Order
	for rows.Next() {
		var o ledger.Order
		var createdAt int64
		err := rows.Scan(&o.ID, &o.Customer, &o.Total, (*string)(&o.Status),
			(*string)(&o.Provenance), &o.Reason, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("list orders: scan: %w", err)
		}
		o.CreatedAt = fromNanos(createdAt)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// InsertPurchaseOrder records an auto-reorder analytics entry.
func (s *Store) InsertPurchaseOrder(ctx context.Context, po ledger.PurchaseOrder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (id, sku, quantity, unit_price, vendor, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		po.ID, po.SKU, po.Quantity, po.UnitPrice, po.Vendor,
		string(po.Status), toNanos(po.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert purchase order %s: %w", po.ID, err)
	}
	return nil
}

// PendingPurchaseOrders returns the count of pending purchase orders per SKU.
func (s *Store) PendingPurchaseOrders(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, COUNT(*) FROM purchase_orders WHERE status = ? GROUP BY sku
	`, string(ledger.PurchaseOrderPending))
	if err != nil {
		return nil, fmt.Errorf("pending purchase orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sku string
		var n int
		if err := rows.Scan(&sku, &n); err != nil {
			return nil, fmt.Errorf("pending purchase orders: scan: %w", err)
		}
		counts[sku] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending purchase orders: %w", err)
	}
	return counts, nil
}

// ListPurchaseOrders returns purchase orders newest first, optionally
// filtered by SKU.
func (s *Store) ListPurchaseOrders(ctx context.Context, sku string) ([]ledger.PurchaseOrder, error) {
	query := `SELECT id, sku, quantity, unit_price, vendor, status, created_at FROM purchase_orders`
	var args []any
	if sku != "" {
		query += ` WHERE sku = ?`
		args = append(args, sku)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var pos []ledger.PurchaseOrder
	for rows.Next() {
		var po ledger.PurchaseOrder
		var createdAt int64
		err := rows.Scan(&po.ID, &po.SKU, &po.Quantity, &po.UnitPrice,
			&po.Vendor, (*string)(&po.Status), &createdAt)
		if err != nil {
			return nil, fmt.Errorf("list purchase orders: scan: %w", err)
		}
		po.CreatedAt = fromNanos(createdAt)
		pos = append(pos, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return pos, nil
}
