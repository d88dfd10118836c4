package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/stockd/internal/alerts"
	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/metrics"
	"github.com/roach88/stockd/internal/store"
)

// Engine coordinates the inventory core. It owns the store, the rule set,
// the alert bus, the event bus, and the per-SKU lock table. One instance is
// constructed at startup and passed by handle to all collaborators; there is
// no ambient global state.
type Engine struct {
	store  *store.Store
	alerts *alerts.Bus
	bus    *Bus
	seq    *SeqClock
	wall   WallClock
	locks  *skuLocks

	rules   []Rule // declaration order, fixed after construction
	ruleMu  sync.RWMutex
	enabled map[string]bool

	alertCapacity int
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithWallClock injects the wall clock. Tests use a manual clock.
func WithWallClock(c WallClock) Option {
	return func(e *Engine) {
		e.wall = c
	}
}

// WithRules replaces the rule set. The slice order is the evaluation order
// and never changes afterward; the slice is copied to protect it.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = make([]Rule, len(rules))
		copy(e.rules, rules)
	}
}

// WithAlertCapacity overrides the alert bus capacity (default 100).
func WithAlertCapacity(n int) Option {
	return func(e *Engine) {
		e.alertCapacity = n
	}
}

// New constructs an Engine over an opened store. The movement sequence clock
// resumes from the highest persisted seq, so restart never reuses a sequence
// number.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:         st,
		bus:           NewBus(),
		wall:          SystemClock{},
		locks:         newSKULocks(),
		rules:         BuiltinRules(DefaultRuleSettings()),
		alertCapacity: alerts.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}

	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume movement clock: %w", err)
	}
	e.seq = NewSeqClockAt(maxSeq)

	e.alerts = alerts.New(e.alertCapacity, e.wall.Now, func(a ledger.Alert) {
		metrics.AlertsRaised.WithLabelValues(string(a.Severity)).Inc()
		e.bus.Publish(Event{Kind: EventAlertRaised, At: a.Timestamp, Alert: &a})
	})

	e.enabled = make(map[string]bool, len(e.rules))
	for _, r := range e.rules {
		e.enabled[r.Name] = r.Enabled
	}

	return e, nil
}

// Close shuts down the event bus. The store is owned by the caller.
func (e *Engine) Close() {
	e.bus.Close()
}

// Store exposes the underlying store for read paths (insights, CLI).
func (e *Engine) Store() *store.Store {
	return e.store
}

// Alerts returns the alert bus.
func (e *Engine) Alerts() *alerts.Bus {
	return e.alerts
}

// Events returns the event bus for subscriptions.
func (e *Engine) Events() *Bus {
	return e.bus
}

// Now returns the engine's current wall time.
func (e *Engine) Now() time.Time {
	return e.wall.Now()
}

// SetRuleEnabled flips one rule's enabled flag. The rule set itself is
// immutable during a run.
func (e *Engine) SetRuleEnabled(name string, enabled bool) error {
	e.ruleMu.Lock()
	defer e.ruleMu.Unlock()
	if _, ok := e.enabled[name]; !ok {
		return fmt.Errorf("rule %s: %w", name, ledger.ErrNotFound)
	}
	e.enabled[name] = enabled
	return nil
}

func (e *Engine) ruleEnabled(name string) bool {
	e.ruleMu.RLock()
	defer e.ruleMu.RUnlock()
	return e.enabled[name]
}

// ProductInput is the caller-facing mutation payload for a product.
type ProductInput struct {
	SKU          string
	Name         string
	Category     string
	Price        float64
	Quantity     int
	ReorderPoint int
	Vendor       string
}

func (in ProductInput) validate() error {
	if in.SKU == "" {
		return &ledger.ValidationError{Message: "sku is required"}
	}
	if in.Quantity < 0 {
		return &ledger.ValidationError{
			SKU:     in.SKU,
			Message: fmt.Sprintf("quantity must be non-negative, got %d", in.Quantity),
		}
	}
	return nil
}

// writeOptions steer one pass through the transactional write path.
type writeOptions struct {
	mustExist    bool
	mustNotExist bool
	movementType ledger.MovementType
	reason       string
	provenance   ledger.Provenance
	lastSynced   time.Time // zero preserves the previous stamp
}

// write is the single product write path: per-SKU lock, then one transaction
// writing the product row and, when the quantity changed, the movement
// describing it. Rule evaluation runs after commit, outside the lock.
func (e *Engine) write(ctx context.Context, pass *firePass, in ProductInput, o writeOptions) (ledger.Product, *ledger.Product, error) {
	if err := in.validate(); err != nil {
		return ledger.Product{}, nil, err
	}

	var next ledger.Product
	var prev *ledger.Product

	unlock := e.locks.Lock(in.SKU)
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := e.store.GetProductTx(ctx, tx, in.SKU)
		switch {
		case err == nil:
			if o.mustNotExist {
				return &ledger.ValidationError{
					SKU:     in.SKU,
					Message: "product already exists",
				}
			}
			prev = &existing
		case ledger.IsNotFound(err):
			if o.mustExist {
				return err
			}
			prev = nil
		default:
			return err
		}

		now := e.wall.Now()
		next = ledger.Product{
			SKU:          in.SKU,
			Name:         in.Name,
			Category:     in.Category,
			Price:        in.Price,
			Quantity:     in.Quantity,
			ReorderPoint: in.ReorderPoint,
			Vendor:       in.Vendor,
			Provenance:   o.provenance,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if prev != nil {
			next.CreatedAt = prev.CreatedAt
			next.LastSynced = prev.LastSynced
		}
		if !o.lastSynced.IsZero() {
			next.LastSynced = o.lastSynced
		}

		if _, err := e.store.UpsertProductTx(ctx, tx, next); err != nil {
			return err
		}

		delta := next.Quantity
		if prev != nil {
			delta = next.Quantity - prev.Quantity
		}
		if delta != 0 {
			m := ledger.Movement{
				ID:        newID(),
				SKU:       next.SKU,
				Type:      o.movementType,
				Delta:     delta,
				Resulting: next.Quantity,
				Seq:       e.seq.Next(),
				Timestamp: now,
				Reason:    o.reason,
			}
			if err := e.store.AppendMovementTx(ctx, tx, m); err != nil {
				return err
			}
			metrics.MovementsAppended.WithLabelValues(string(o.movementType)).Inc()
		}
		return nil
	})
	unlock()
	if err != nil {
		return ledger.Product{}, nil, err
	}

	e.evaluate(ctx, pass, next, prev)
	return next, prev, nil
}

// CreateProduct adds a new product to the catalog. A non-zero starting
// quantity is recorded as an initial-stock adjustment movement.
func (e *Engine) CreateProduct(ctx context.Context, in ProductInput) (ledger.Product, error) {
	p, _, err := e.write(ctx, newFirePass(), in, writeOptions{
		mustNotExist: true,
		movementType: ledger.MovementAdjustment,
		reason:       "initial stock",
		provenance:   ledger.ProvenanceManual,
	})
	if err != nil {
		return ledger.Product{}, err
	}
	slog.Info("product created", "sku", p.SKU, "quantity", p.Quantity)
	return p, nil
}

// UpdateProduct rewrites an existing product. A quantity change is recorded
// as a manual adjustment movement.
func (e *Engine) UpdateProduct(ctx context.Context, in ProductInput) (ledger.Product, error) {
	p, _, err := e.write(ctx, newFirePass(), in, writeOptions{
		mustExist:    true,
		movementType: ledger.MovementAdjustment,
		reason:       "manual adjustment",
		provenance:   ledger.ProvenanceManual,
	})
	if err != nil {
		return ledger.Product{}, err
	}
	slog.Info("product updated", "sku", p.SKU, "quantity", p.Quantity)
	return p, nil
}

// update is the internal mutation path shared with rule actions; it reuses
// the caller's evaluation pass for loop prevention.
func (e *Engine) update(ctx context.Context, pass *firePass, in ProductInput, mt ledger.MovementType, reason string) (ledger.Product, error) {
	p, _, err := e.write(ctx, pass, in, writeOptions{
		mustExist:    true,
		movementType: mt,
		reason:       reason,
		provenance:   ledger.ProvenanceManual,
	})
	return p, err
}

// SyncUpsert writes a product on behalf of catalog sync: provenance is
// recorded as sync, last_synced is stamped, and a quantity difference from
// the local value lands as a sync-correction movement. Rules still fire
// through the shared write path.
//
// Returns whether the SKU was new to the catalog.
func (e *Engine) SyncUpsert(ctx context.Context, in ProductInput, at time.Time) (created bool, err error) {
	_, prev, err := e.write(ctx, newFirePass(), in, writeOptions{
		movementType: ledger.MovementSyncCorrection,
		reason:       "catalog sync",
		provenance:   ledger.ProvenanceSync,
		lastSynced:   at,
	})
	if err != nil {
		return false, err
	}
	return prev == nil, nil
}

// GetProduct reads one product.
func (e *Engine) GetProduct(ctx context.Context, sku string) (ledger.Product, error) {
	return e.store.GetProduct(ctx, sku)
}

// ListProducts returns a snapshot of the catalog.
func (e *Engine) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	return e.store.ListProducts(ctx)
}

// Reconcile replays the movement log for a SKU and reports whether it
// reproduces the stored quantity.
func (e *Engine) Reconcile(ctx context.Context, sku string) (bool, error) {
	return e.store.Reconcile(ctx, sku)
}
