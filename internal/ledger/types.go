package ledger

import "time"

// MovementType categorizes the cause of a quantity change.
type MovementType string

const (
	// MovementSale records stock leaving through a fulfilled order line.
	MovementSale MovementType = "sale"

	// MovementAdjustment records a manual quantity correction.
	MovementAdjustment MovementType = "adjustment"

	// MovementReorder records stock arriving from a purchase order.
	MovementReorder MovementType = "reorder"

	// MovementSyncCorrection records a quantity written by catalog sync when
	// the remote value disagreed with the local one.
	MovementSyncCorrection MovementType = "sync-correction"
)

// ValidMovementType reports whether t is one of the defined movement types.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementSale, MovementAdjustment, MovementReorder, MovementSyncCorrection:
		return true
	}
	return false
}

// Provenance identifies which writer last touched a product.
type Provenance string

const (
	ProvenanceManual Provenance = "manual"
	ProvenanceSync   Provenance = "sync"
)

// Product is a stocked item keyed by SKU.
//
// Quantity is mutated only through the store's transactional write path;
// callers receive copies and cannot poke fields behind the engine's back.
type Product struct {
	SKU          string
	Name         string
	Category     string
	Price        float64
	Quantity     int
	ReorderPoint int
	Vendor       string
	Provenance   Provenance
	LastSynced   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Movement is one immutable entry in the append-only quantity log.
//
// Delta is signed (sales are negative). Resulting is the product quantity
// immediately after this movement committed. Seq is a strictly increasing
// logical sequence number that breaks ties between movements sharing a
// timestamp, so replay order is total.
type Movement struct {
	ID        string
	SKU       string
	Type      MovementType
	Delta     int
	Resulting int
	Seq       int64
	Timestamp time.Time
	OrderID   string // causal order id for sale movements, else empty
	Reason    string
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderRejected  OrderStatus = "rejected"
)

// LineItem is one ordered SKU with the unit price captured at order time.
type LineItem struct {
	SKU       string
	Quantity  int
	UnitPrice float64
}

// Order is a multi-item purchase processed atomically: either every line
// decrements stock and produces a sale movement, or none do.
type Order struct {
	ID         string
	Customer   string
	Items      []LineItem
	Total      float64
	Status     OrderStatus
	Provenance Provenance
	Reason     string // populated for rejected orders
	CreatedAt  time.Time
}

// ComputeTotal returns the sum of quantity × captured unit price over items.
func (o Order) ComputeTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// PurchaseOrderStatus is the lifecycle state of an auto-reorder entry.
type PurchaseOrderStatus string

const (
	PurchaseOrderPending  PurchaseOrderStatus = "pending"
	PurchaseOrderReceived PurchaseOrderStatus = "received"
)

// PurchaseOrder is the analytics record written by the auto-reorder rule.
// It tracks intent to restock; it is not a product mutation.
type PurchaseOrder struct {
	ID        string
	SKU       string
	Quantity  int
	UnitPrice float64
	Vendor    string
	Status    PurchaseOrderStatus
	CreatedAt time.Time
}

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is one entry in the bounded notification feed.
type Alert struct {
	ID        string
	Category  string
	Message   string
	Severity  Severity
	Timestamp time.Time
	Read      bool
}

// SyncMode distinguishes the two catalog sync job types.
type SyncMode string

const (
	SyncFull        SyncMode = "full"
	SyncIncremental SyncMode = "incremental"
)

// SyncStatus is the lifecycle state of a sync job.
type SyncStatus string

const (
	SyncRunning    SyncStatus = "running"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
	SyncSuperseded SyncStatus = "superseded"
)

// SyncJob tracks the progress of one full or incremental sync run.
// Jobs are transient; they are not persisted across restarts.
type SyncJob struct {
	ID         string
	Mode       SyncMode
	Status     SyncStatus
	Seen       int
	Created    int
	Updated    int
	Errored    int
	StartedAt  time.Time
	FinishedAt time.Time
}
