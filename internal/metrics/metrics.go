// Package metrics registers the core's operational counters on the default
// prometheus registry. The core exposes no HTTP endpoint itself; an
// embedding process decides whether and how to serve the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersProcessed counts committed orders by terminal status.
	OrdersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockd_orders_processed_total",
		Help: "Orders committed, labeled by terminal status (fulfilled/rejected).",
	}, []string{"status"})

	// MovementsAppended counts ledger appends by movement type.
	MovementsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockd_movements_appended_total",
		Help: "Movements appended to the ledger, labeled by type.",
	}, []string{"type"})

	// SyncItems counts per-SKU sync outcomes.
	SyncItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockd_sync_items_total",
		Help: "Catalog sync items processed, labeled by result (ok/error).",
	}, []string{"mode", "result"})

	// AlertsRaised counts alerts by severity.
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockd_alerts_raised_total",
		Help: "Alerts raised, labeled by severity.",
	}, []string{"severity"})

	// RuleFailures counts isolated rule action failures.
	RuleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockd_rule_failures_total",
		Help: "Rule action failures, labeled by rule name.",
	}, []string{"rule"})
)
