package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/metrics"
)

// OrderItem is one requested line of an order submission.
type OrderItem struct {
	SKU      string
	Quantity int
}

// OrderRequest is a caller-facing multi-item order.
type OrderRequest struct {
	Customer   string
	Provenance ledger.Provenance
	Items      []OrderItem
}

func (r OrderRequest) validate() error {
	if len(r.Items) == 0 {
		return &ledger.ValidationError{Message: "order has no line items"}
	}
	seen := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		if it.SKU == "" {
			return &ledger.ValidationError{Message: "order line item missing sku"}
		}
		if it.Quantity <= 0 {
			return &ledger.ValidationError{
				SKU:     it.SKU,
				Message: fmt.Sprintf("order quantity must be positive, got %d", it.Quantity),
			}
		}
		if seen[it.SKU] {
			return &ledger.ValidationError{
				SKU:     it.SKU,
				Message: "duplicate sku in order",
			}
		}
		seen[it.SKU] = true
	}
	return nil
}

// SubmitOrder validates and commits a multi-item order atomically.
//
// Every line item is checked against current stock before anything is
// decremented; if any check fails, the order commits with status rejected
// and no movement or quantity change leaks from the transaction. On success
// each line decrements its product and appends exactly one sale movement
// referencing the order id, and the order commits as fulfilled.
//
// Rejections return the committed rejected order together with the typed
// failure (InsufficientStockError or UnknownSKUError).
func (e *Engine) SubmitOrder(ctx context.Context, req OrderRequest) (ledger.Order, error) {
	if err := req.validate(); err != nil {
		return ledger.Order{}, err
	}
	if req.Provenance == "" {
		req.Provenance = ledger.ProvenanceManual
	}

	skus := make([]string, len(req.Items))
	for i, it := range req.Items {
		skus[i] = it.SKU
	}

	order := ledger.Order{
		ID:         newID(),
		Customer:   req.Customer,
		Provenance: req.Provenance,
	}

	var affected []ledger.Product
	var prevs []*ledger.Product
	var failure error

	unlock := e.locks.LockAll(skus)
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := e.wall.Now()
		order.CreatedAt = now

		// Stock check across all lines before any write. The first failure
		// rejects the whole order.
		products := make([]ledger.Product, len(req.Items))
		for i, it := range req.Items {
			p, err := e.store.GetProductTx(ctx, tx, it.SKU)
			if ledger.IsNotFound(err) {
				failure = &ledger.UnknownSKUError{SKU: it.SKU}
				break
			}
			if err != nil {
				return err
			}
			if p.Quantity < it.Quantity {
				failure = &ledger.InsufficientStockError{
					SKU:       it.SKU,
					Available: p.Quantity,
					Requested: it.Quantity,
				}
				break
			}
			products[i] = p
			order.Items = append(order.Items, ledger.LineItem{
				SKU:       it.SKU,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}

		if failure != nil {
			// Persist the rejection; nothing else commits.
			order.Status = ledger.OrderRejected
			order.Reason = failure.Error()
			order.Total = order.ComputeTotal()
			return e.store.InsertOrderTx(ctx, tx, order)
		}

		for i, it := range req.Items {
			p := products[i]
			p.Quantity -= it.Quantity
			p.UpdatedAt = now

			prev := products[i]
			if _, err := e.store.UpsertProductTx(ctx, tx, p); err != nil {
				return err
			}

			m := ledger.Movement{
				ID:        newID(),
				SKU:       p.SKU,
				Type:      ledger.MovementSale,
				Delta:     -it.Quantity,
				Resulting: p.Quantity,
				Seq:       e.seq.Next(),
				Timestamp: now,
				OrderID:   order.ID,
				Reason:    fmt.Sprintf("order %s", order.ID),
			}
			if err := e.store.AppendMovementTx(ctx, tx, m); err != nil {
				return err
			}
			metrics.MovementsAppended.WithLabelValues(string(ledger.MovementSale)).Inc()

			affected = append(affected, p)
			prevs = append(prevs, &prev)
		}

		order.Status = ledger.OrderFulfilled
		order.Total = order.ComputeTotal()
		return e.store.InsertOrderTx(ctx, tx, order)
	})
	unlock()
	if err != nil {
		return ledger.Order{}, fmt.Errorf("submit order: %w", err)
	}

	metrics.OrdersProcessed.WithLabelValues(string(order.Status)).Inc()
	e.bus.Publish(Event{Kind: EventOrderProcessed, At: order.CreatedAt, Order: &order})

	if failure != nil {
		slog.Info("order rejected",
			"order_id", order.ID,
			"customer", order.Customer,
			"reason", order.Reason,
		)
		return order, failure
	}

	// One evaluation per affected product, sharing a pass so cascading rule
	// actions cannot re-fire within this submission.
	pass := newFirePass()
	for i, p := range affected {
		e.evaluate(ctx, pass, p, prevs[i])
	}

	slog.Info("order fulfilled",
		"order_id", order.ID,
		"customer", order.Customer,
		"items", len(order.Items),
		"total", order.Total,
	)
	return order, nil
}
