// Package insights derives read-only aggregates from the product snapshot
// and the movement ledger. Reports are recomputed on demand; nothing here
// is cached or mutated.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/store"
)

// DefaultWindow is the trailing sales window for top-seller aggregation.
const DefaultWindow = 30 * 24 * time.Hour

// DefaultTopN bounds the top-seller list.
const DefaultTopN = 5

// SalesPoint is one day of sales history from the forecast provider.
type SalesPoint struct {
	Date     time.Time
	Quantity int
}

// ForecastProvider is the read-only contact point with the forecasting
// code: recent sales history per SKU, nothing more. A nil provider yields
// un-annotated reports.
type ForecastProvider interface {
	RecentSalesWindow(ctx context.Context, sku string, days int) ([]SalesPoint, error)
}

// TopSeller aggregates sale movements for one SKU over the window.
type TopSeller struct {
	SKU       string
	UnitsSold int
	Recent    []SalesPoint // forecast annotation, may be nil
}

// Priority grades a recommendation. Order: critical > high > medium.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
}

// Recommendation is one derived text advisory.
type Recommendation struct {
	Priority Priority
	SKU      string
	Message  string
}

// Report is one on-demand snapshot of derived inventory analytics.
type Report struct {
	GeneratedAt     time.Time
	ProductCount    int
	TotalValue      float64 // sum of quantity x price over the snapshot
	LowStock        []ledger.Product
	TopSellers      []TopSeller
	Recommendations []Recommendation
	PendingReorders map[string]int // pending purchase orders per SKU
}

// Generator computes reports over a store.
type Generator struct {
	store             *store.Store
	now               func() time.Time
	forecast          ForecastProvider
	window            time.Duration
	topN              int
	criticalThreshold int
}

// Option configures a Generator.
type Option func(*Generator)

// WithNow injects the time source for window computation.
func WithNow(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithForecast attaches a forecast provider for sales annotation.
func WithForecast(p ForecastProvider) Option {
	return func(g *Generator) { g.forecast = p }
}

// WithWindow overrides the trailing sales window.
func WithWindow(d time.Duration) Option {
	return func(g *Generator) { g.window = d }
}

// WithTopN overrides the top-seller list size.
func WithTopN(n int) Option {
	return func(g *Generator) { g.topN = n }
}

// WithCriticalThreshold overrides the quantity treated as critical.
func WithCriticalThreshold(n int) Option {
	return func(g *Generator) { g.criticalThreshold = n }
}

// New creates a Generator.
func New(st *store.Store, opts ...Option) *Generator {
	g := &Generator{
		store:             st,
		now:               func() time.Time { return time.Now().UTC() },
		window:            DefaultWindow,
		topN:              DefaultTopN,
		criticalThreshold: 3,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate computes a full report from the current snapshot.
func (g *Generator) Generate(ctx context.Context) (Report, error) {
	now := g.now()
	report := Report{GeneratedAt: now}

	products, err := g.store.ListProducts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("insights: %w", err)
	}
	report.ProductCount = len(products)

	for _, p := range products {
		report.TotalValue += float64(p.Quantity) * p.Price
		if p.Quantity <= p.ReorderPoint {
			report.LowStock = append(report.LowStock, p)
		}
	}
	sort.Slice(report.LowStock, func(i, j int) bool {
		return report.LowStock[i].SKU < report.LowStock[j].SKU
	})

	sellers, err := g.topSellers(ctx, now)
	if err != nil {
		return Report{}, err
	}
	report.TopSellers = sellers

	pending, err := g.store.PendingPurchaseOrders(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("insights: %w", err)
	}
	report.PendingReorders = pending

	report.Recommendations = g.recommend(report)
	return report, nil
}

// topSellers aggregates sale movements within the trailing window by SKU,
// quantity descending, ties broken by SKU lexical order.
func (g *Generator) topSellers(ctx context.Context, now time.Time) ([]TopSeller, error) {
	sales, err := g.store.ListSalesSince(ctx, now.Add(-g.window))
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}

	units := make(map[string]int)
	for _, m := range sales {
		units[m.SKU] += -m.Delta
	}

	sellers := make([]TopSeller, 0, len(units))
	for sku, sold := range units {
		sellers = append(sellers, TopSeller{SKU: sku, UnitsSold: sold})
	}
	sort.Slice(sellers, func(i, j int) bool {
		if sellers[i].UnitsSold != sellers[j].UnitsSold {
			return sellers[i].UnitsSold > sellers[j].UnitsSold
		}
		return sellers[i].SKU < sellers[j].SKU
	})
	if len(sellers) > g.topN {
		sellers = sellers[:g.topN]
	}

	if g.forecast != nil {
		days := int(g.window / (24 * time.Hour))
		for i := range sellers {
			points, err := g.forecast.RecentSalesWindow(ctx, sellers[i].SKU, days)
			if err != nil {
				// Annotation only; the report stands without it.
				slog.Warn("forecast annotation failed", "sku", sellers[i].SKU, "error", err)
				continue
			}
			sellers[i].Recent = points
		}
	}

	return sellers, nil
}

// recommend derives text advisories, priority ordered critical > high >
// medium and by SKU within a priority.
func (g *Generator) recommend(r Report) []Recommendation {
	var recs []Recommendation

	topSelling := make(map[string]bool, len(r.TopSellers))
	for _, s := range r.TopSellers {
		topSelling[s.SKU] = true
	}

	for _, p := range r.LowStock {
		switch {
		case p.Quantity <= g.criticalThreshold:
			recs = append(recs, Recommendation{
				Priority: PriorityCritical,
				SKU:      p.SKU,
				Message:  fmt.Sprintf("%s is critically low (%d on hand); restock immediately", p.SKU, p.Quantity),
			})
		case topSelling[p.SKU]:
			recs = append(recs, Recommendation{
				Priority: PriorityHigh,
				SKU:      p.SKU,
				Message:  fmt.Sprintf("%s is a top seller below its reorder point (%d on hand, point %d)", p.SKU, p.Quantity, p.ReorderPoint),
			})
		default:
			recs = append(recs, Recommendation{
				Priority: PriorityHigh,
				SKU:      p.SKU,
				Message:  fmt.Sprintf("%s is below its reorder point (%d on hand, point %d)", p.SKU, p.Quantity, p.ReorderPoint),
			})
		}
	}

	for _, s := range r.TopSellers {
		if s.UnitsSold == 0 {
			continue
		}
		if pending := r.PendingReorders[s.SKU]; pending > 0 {
			continue
		}
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			SKU:      s.SKU,
			Message:  fmt.Sprintf("%s sold %d units in the window; consider raising its reorder point", s.SKU, s.UnitsSold),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if priorityRank[recs[i].Priority] != priorityRank[recs[j].Priority] {
			return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
		}
		return recs[i].SKU < recs[j].SKU
	})
	return recs
}
