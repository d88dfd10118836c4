// Package catalog defines the Remote Catalog Source boundary: the external
// system of record the sync scheduler reconciles against.
package catalog

import "context"

// Record is one product-like entry returned by the remote catalog.
type Record struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	ReorderPoint int     `json:"reorder_point"`
	Vendor       string  `json:"vendor"`
}

// Source is the remote catalog collaborator. FetchCatalog pulls the complete
// remote catalog; PushQuantity writes one SKU's local quantity back
// (local-to-remote, quantity only). Both calls must respect ctx deadlines.
type Source interface {
	FetchCatalog(ctx context.Context) ([]Record, error)
	PushQuantity(ctx context.Context, sku string, quantity int) error
}
