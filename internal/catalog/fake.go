package catalog

import (
	"context"
	"fmt"
	"sync"
)

// FakeSource is an in-memory Source for tests and the demo run mode.
//
// Individual SKUs can be primed to fail, exercising the per-item error
// isolation of sync batches.
type FakeSource struct {
	mu       sync.Mutex
	records  map[string]Record
	order    []string
	failing  map[string]bool
	fetchErr error

	pushes  map[string]int
	fetches int
}

// NewFakeSource creates a fake catalog seeded with the given records.
func NewFakeSource(records ...Record) *FakeSource {
	s := &FakeSource{
		records: make(map[string]Record, len(records)),
		failing: make(map[string]bool),
		pushes:  make(map[string]int),
	}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// Put adds or replaces a record.
func (s *FakeSource) Put(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.SKU]; !ok {
		s.order = append(s.order, r.SKU)
	}
	s.records[r.SKU] = r
}

// FailSKU makes PushQuantity fail for one SKU.
func (s *FakeSource) FailSKU(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[sku] = true
}

// FailFetch makes FetchCatalog return err.
func (s *FakeSource) FailFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// FetchCatalog returns the seeded records in insertion order.
func (s *FakeSource) FetchCatalog(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]Record, 0, len(s.order))
	for _, sku := range s.order {
		out = append(out, s.records[sku])
	}
	return out, nil
}

// PushQuantity records the pushed quantity, or fails if the SKU is primed.
func (s *FakeSource) PushQuantity(ctx context.Context, sku string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[sku] {
		return fmt.Errorf("remote rejected %s", sku)
	}
	s.pushes[sku] = quantity
	if r, ok := s.records[sku]; ok {
		r.Quantity = quantity
		s.records[sku] = r
	}
	return nil
}

// Pushed returns the last quantity pushed for a SKU and whether any push
// happened.
func (s *FakeSource) Pushed(sku string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.pushes[sku]
	return q, ok
}

// PushCount returns how many SKUs have been pushed at least once.
func (s *FakeSource) PushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

// FetchCount returns how many FetchCatalog calls were made.
func (s *FakeSource) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
