package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stockd/internal/ledger"
)

const productColumns = `sku, name, category, price, quantity, reorder_point,
	vendor, provenance, last_synced, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (ledger.Product, error) {
	var p ledger.Product
	var lastSynced, createdAt, updatedAt int64
	err := row.Scan(
		&p.SKU, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.ReorderPoint,
		&p.Vendor, (*string)(&p.Provenance), &lastSynced, &createdAt, &updatedAt,
	)
	if err != nil {
		return ledger.Product{}, err
	}
	p.LastSynced = fromNanos(lastSynced)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return p, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// GetProduct reads one product by SKU.
// Returns ledger.ErrNotFound if the SKU is not in the catalog.
func (s *Store) GetProduct(ctx context.Context, sku string) (ledger.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Product{}, fmt.Errorf("product %s: %w", sku, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.Product{}, fmt.Errorf("get product %s: %w", sku, err)
	}
	return p, nil
}

// GetProductTx is GetProduct inside an open transaction. Used by the order
// and sync write paths so the stock check and the decrement see the same row.
func (s *Store) GetProductTx(ctx context.Context, tx *sql.Tx, sku string) (ledger.Product, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Product{}, fmt.Errorf("product %s: %w", sku, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.Product{}, fmt.Errorf("get product %s: %w", sku, err)
	}
	return p, nil
}

// ListProducts returns the full catalog. Snapshot semantics come from the
// single SELECT: a concurrent writer is never observed mid-update.
func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: scan: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListStaleProducts returns products whose last_synced is strictly older
// than cutoff. Never-synced products (last_synced = 0) are always stale.
func (s *Store) ListStaleProducts(ctx context.Context, cutoff time.Time) ([]ledger.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE last_synced < ? ORDER BY sku`,
		toNanos(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list stale products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list stale products: scan: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stale products: %w", err)
	}
	return products, nil
}

// UpsertProductTx writes a product row inside an open transaction and
// returns the previous snapshot, or nil if the SKU is new.
//
// Quantity must be non-negative; the schema CHECK backs this up, but the
// typed error here is what callers surface.
func (s *Store) UpsertProductTx(ctx context.Context, tx *sql.Tx, p ledger.Product) (*ledger.Product, error) {
	if p.SKU == "" {
		return nil, &ledger.ValidationError{Message: "product sku is required"}
	}
	if p.Quantity < 0 {
		return nil, &ledger.ValidationError{
			SKU:     p.SKU,
			Message: fmt.Sprintf("quantity must be non-negative, got %d", p.Quantity),
		}
	}

	var prev *ledger.Product
	existing, err := s.GetProductTx(ctx, tx, p.SKU)
	switch {
	case err == nil:
		prev = &existing
	case ledger.IsNotFound(err):
		// First write for this SKU
	default:
		return nil, fmt.Errorf("upsert product %s: %w", p.SKU, err)
	}

	createdAt := p.CreatedAt
	if prev != nil {
		createdAt = prev.CreatedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products
		(sku, name, category, price, quantity, reorder_point, vendor, provenance, last_synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			price = excluded.price,
			quantity = excluded.quantity,
			reorder_point = excluded.reorder_point,
			vendor = excluded.vendor,
			provenance = excluded.provenance,
			last_synced = excluded.last_synced,
			updated_at = excluded.updated_at
	`,
		p.SKU, p.Name, p.Category, p.Price, p.Quantity, p.ReorderPoint,
		p.Vendor, string(p.Provenance), toNanos(p.LastSynced),
		toNanos(createdAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert product %s: %w", p.SKU, err)
	}

	return prev, nil
}

// TouchLastSynced updates only the last_synced stamp for a SKU. Used by
// incremental sync after a successful remote push; no movement is involved.
func (s *Store) TouchLastSynced(ctx context.Context, sku string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET last_synced = ? WHERE sku = ?`, toNanos(at), sku)
	if err != nil {
		return fmt.Errorf("touch last_synced %s: %w", sku, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch last_synced %s: %w", sku, err)
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", sku, ledger.ErrNotFound)
	}
	return nil
}
