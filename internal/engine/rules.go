package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/metrics"
)

// Rule is one condition/action pair evaluated on every product mutation.
//
// When is a pure predicate over the new product and the optional previous
// snapshot (nil on first write). Then runs only when When returns true.
// Rules are registered once at engine construction and evaluated in
// declaration order; only the enabled flag may change during a run.
type Rule struct {
	Name    string
	Enabled bool
	When    func(p ledger.Product, prev *ledger.Product) bool
	Then    func(ac *ActionContext) error
}

// ActionContext is handed to a rule action. It carries the triggering
// snapshots and the engine operations an action may perform. Mutating
// operations share the evaluation pass, so an action cannot re-trigger the
// rule that invoked it for the same SKU.
type ActionContext struct {
	Context  context.Context
	Product  ledger.Product
	Previous *ledger.Product

	eng  *Engine
	pass *firePass
}

// RaiseAlert emits an alert through the engine's alert bus.
func (ac *ActionContext) RaiseAlert(category, message string, sev ledger.Severity) ledger.Alert {
	return ac.eng.alerts.Raise(category, message, sev)
}

// CreatePurchaseOrder records a pending purchase order for the triggering
// product. This is an analytics entry, not a product mutation.
func (ac *ActionContext) CreatePurchaseOrder(quantity int) (ledger.PurchaseOrder, error) {
	po := ledger.PurchaseOrder{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SKU:       ac.Product.SKU,
		Quantity:  quantity,
		UnitPrice: ac.Product.Price,
		Vendor:    ac.Product.Vendor,
		Status:    ledger.PurchaseOrderPending,
		CreatedAt: ac.eng.wall.Now(),
	}
	if err := ac.eng.store.InsertPurchaseOrder(ac.Context, po); err != nil {
		return ledger.PurchaseOrder{}, err
	}
	return po, nil
}

// AdjustQuantity applies a quantity delta to the triggering product through
// the normal write path. The shared pass keeps the adjustment from
// re-firing the rule that requested it.
func (ac *ActionContext) AdjustQuantity(delta int, reason string) error {
	in := ProductInput{
		SKU:          ac.Product.SKU,
		Name:         ac.Product.Name,
		Category:     ac.Product.Category,
		Price:        ac.Product.Price,
		Quantity:     ac.Product.Quantity + delta,
		ReorderPoint: ac.Product.ReorderPoint,
		Vendor:       ac.Product.Vendor,
	}
	if in.Quantity < 0 {
		return &ledger.ValidationError{
			SKU:     in.SKU,
			Message: fmt.Sprintf("adjustment by %d would make quantity negative", delta),
		}
	}
	_, err := ac.eng.update(ac.Context, ac.pass, in, ledger.MovementAdjustment, reason)
	return err
}

// firePass tracks (rule, sku) pairs already fired in one evaluation pass.
// It is the loop-prevention guard: a rule action that mutates state triggers
// a nested evaluation sharing the same pass, so the pair cannot fire twice.
type firePass struct {
	mu    sync.Mutex
	fired map[string]bool
}

func newFirePass() *firePass {
	return &firePass{fired: make(map[string]bool)}
}

func passKey(rule, sku string) string {
	return rule + "\x00" + sku
}

func (p *firePass) markFired(rule, sku string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := passKey(rule, sku)
	if p.fired[key] {
		return false
	}
	p.fired[key] = true
	return true
}

// evaluate runs every enabled rule against the new/previous snapshots in
// declaration order. Action failures (errors and panics) are isolated: the
// failing rule is reported as a warning alert and the remaining rules still
// run.
func (e *Engine) evaluate(ctx context.Context, pass *firePass, p ledger.Product, prev *ledger.Product) {
	for i := range e.rules {
		rule := &e.rules[i]
		if !e.ruleEnabled(rule.Name) {
			continue
		}
		if !rule.When(p, prev) {
			continue
		}
		if !pass.markFired(rule.Name, p.SKU) {
			continue
		}

		ac := &ActionContext{
			Context:  ctx,
			Product:  p,
			Previous: prev,
			eng:      e,
			pass:     pass,
		}
		if err := runAction(rule, ac); err != nil {
			actionErr := &ledger.RuleActionError{Rule: rule.Name, SKU: p.SKU, Err: err}
			slog.Warn("rule action failed",
				"rule", rule.Name,
				"sku", p.SKU,
				"error", err,
			)
			metrics.RuleFailures.WithLabelValues(rule.Name).Inc()
			e.alerts.Raise("rules", actionErr.Error(), ledger.SeverityWarning)
			continue
		}

		slog.Debug("rule fired", "rule", rule.Name, "sku", p.SKU)
	}
}

// runAction invokes a rule action, converting panics into errors so one
// rule cannot take down the evaluation pass.
func runAction(rule *Rule, ac *ActionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Then(ac)
}

// RuleSettings holds the tunable thresholds of the built-in rules.
// Loaded from the rules settings file; zero values fall back to defaults.
type RuleSettings struct {
	AutoReorder struct {
		Enabled              bool
		Multiplier           int
		FallbackReorderPoint int
	}
	CriticalStock struct {
		Enabled   bool
		Threshold int
	}
	PriceChange struct {
		Enabled  bool
		MinDelta float64
	}
}

// DefaultRuleSettings returns the built-in rule configuration: all rules
// enabled, reorder quantity 3x the reorder point (fallback point 10),
// critical threshold 3 units, price alert above a 50.00 swing.
func DefaultRuleSettings() RuleSettings {
	var s RuleSettings
	s.AutoReorder.Enabled = true
	s.AutoReorder.Multiplier = 3
	s.AutoReorder.FallbackReorderPoint = 10
	s.CriticalStock.Enabled = true
	s.CriticalStock.Threshold = 3
	s.PriceChange.Enabled = true
	s.PriceChange.MinDelta = 50
	return s
}

// BuiltinRules returns the standard rule set in declaration order:
// auto-reorder, critical stock, price change.
func BuiltinRules(s RuleSettings) []Rule {
	if s.AutoReorder.Multiplier <= 0 {
		s.AutoReorder.Multiplier = 3
	}
	if s.AutoReorder.FallbackReorderPoint <= 0 {
		s.AutoReorder.FallbackReorderPoint = 10
	}
	if s.CriticalStock.Threshold <= 0 {
		s.CriticalStock.Threshold = 3
	}
	if s.PriceChange.MinDelta <= 0 {
		s.PriceChange.MinDelta = 50
	}

	return []Rule{
		{
			Name:    "auto-reorder",
			Enabled: s.AutoReorder.Enabled,
			When: func(p ledger.Product, _ *ledger.Product) bool {
				return p.Quantity <= p.ReorderPoint
			},
			Then: func(ac *ActionContext) error {
				point := ac.Product.ReorderPoint
				if point <= 0 {
					point = s.AutoReorder.FallbackReorderPoint
				}
				qty := s.AutoReorder.Multiplier * point

				po, err := ac.CreatePurchaseOrder(qty)
				if err != nil {
					return fmt.Errorf("create purchase order: %w", err)
				}
				ac.RaiseAlert("reorder",
					fmt.Sprintf("%s fell to %d (reorder point %d); purchase order %s for %d units",
						ac.Product.SKU, ac.Product.Quantity, ac.Product.ReorderPoint, po.ID, qty),
					ledger.SeverityWarning)
				return nil
			},
		},
		{
			Name:    "critical-stock",
			Enabled: s.CriticalStock.Enabled,
			When: func(p ledger.Product, _ *ledger.Product) bool {
				return p.Quantity <= s.CriticalStock.Threshold
			},
			Then: func(ac *ActionContext) error {
				ac.RaiseAlert("stock",
					fmt.Sprintf("%s critically low: %d units on hand", ac.Product.SKU, ac.Product.Quantity),
					ledger.SeverityCritical)
				return nil
			},
		},
		{
			Name:    "price-change",
			Enabled: s.PriceChange.Enabled,
			When: func(p ledger.Product, prev *ledger.Product) bool {
				if prev == nil {
					return false
				}
				diff := p.Price - prev.Price
				if diff < 0 {
					diff = -diff
				}
				return diff > s.PriceChange.MinDelta
			},
			Then: func(ac *ActionContext) error {
				old := ac.Previous.Price
				direction := "increased"
				diff := ac.Product.Price - old
				if diff < 0 {
					direction = "decreased"
					diff = -diff
				}
				ac.RaiseAlert("price",
					fmt.Sprintf("price for %s %s by %.2f (%.2f -> %.2f)",
						ac.Product.SKU, direction, diff, old, ac.Product.Price),
					ledger.SeverityInfo)
				return nil
			},
		},
	}
}
