package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/stockd/internal/ledger"
)

const movementColumns = `id, sku, type, delta, resulting, seq, ts, order_id, reason`

func scanMovement(row rowScanner) (ledger.Movement, error) {
	var m ledger.Movement
	var ts int64
	err := row.Scan(
		&m.ID, &m.SKU, (*string)(&m.Type), &m.Delta, &m.Resulting,
		&m.Seq, &ts, &m.OrderID, &m.Reason,
	)
	if err != nil {
		return ledger.Movement{}, err
	}
	m.Timestamp = fromNanos(ts)
	return m, nil
}

// AppendMovementTx appends one movement inside an open transaction.
//
// Serializability guard: the movement's resulting quantity must equal the
// product row's current quantity as seen by this transaction. A mismatch
// means the caller computed the movement against a stale read; the append
// fails with a ValidationError and the transaction rolls back.
func (s *Store) AppendMovementTx(ctx context.Context, tx *sql.Tx, m ledger.Movement) error {
	if !ledger.ValidMovementType(m.Type) {
		return &ledger.ValidationError{
			SKU:     m.SKU,
			Message: fmt.Sprintf("unknown movement type %q", m.Type),
		}
	}

	current, err := s.GetProductTx(ctx, tx, m.SKU)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	if current.Quantity != m.Resulting {
		return &ledger.ValidationError{
			SKU: m.SKU,
			Message: fmt.Sprintf("movement resulting quantity %d contradicts stored quantity %d",
				m.Resulting, current.Quantity),
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO movements (id, sku, type, delta, resulting, seq, ts, order_id, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.SKU, string(m.Type), m.Delta, m.Resulting, m.Seq,
		toNanos(m.Timestamp), m.OrderID, m.Reason,
	)
	if err != nil {
		return fmt.Errorf("append movement %s: %w", m.ID, err)
	}

	return nil
}

// ListMovements returns movements for a SKU, newest first.
// A limit <= 0 means no limit.
func (s *Store) ListMovements(ctx context.Context, sku string, limit int) ([]ledger.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE sku = ? ORDER BY ts DESC, seq DESC`
	args := []any{sku}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements %s: %w", sku, err)
	}
	defer rows.Close()

	var movements []ledger.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("list movements %s: scan: %w", sku, err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movements %s: %w", sku, err)
	}
	return movements, nil
}

// ListSalesSince returns all sale movements with a timestamp at or after
// since, across every SKU, oldest first. Feeds the top-seller aggregation.
func (s *Store) ListSalesSince(ctx context.Context, since time.Time) ([]ledger.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE type = ? AND ts >= ? ORDER BY ts, seq`,
		string(ledger.MovementSale), toNanos(since))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var movements []ledger.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("list sales: scan: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return movements, nil
}

// Reconcile replays the full movement history for a SKU in (ts, seq) order
// starting from zero and compares the sum of deltas to the stored quantity.
// Returns true when they agree.
func (s *Store) Reconcile(ctx context.Context, sku string) (bool, error) {
	p, err := s.GetProduct(ctx, sku)
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %w", sku, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT delta, resulting FROM movements WHERE sku = ? ORDER BY ts, seq`, sku)
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %w", sku, err)
	}
	defer rows.Close()

	replayed := 0
	for rows.Next() {
		var delta, resulting int
		if err := rows.Scan(&delta, &resulting); err != nil {
			return false, fmt.Errorf("reconcile %s: scan: %w", sku, err)
		}
		replayed += delta
		if replayed != resulting {
			// The log itself is inconsistent; no need to compare to the row.
			return false, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("reconcile %s: %w", sku, err)
	}

	return replayed == p.Quantity, nil
}

// MaxSeq returns the highest movement sequence number, or 0 for an empty
// log. The engine resumes its logical clock from here on startup.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM movements`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}
