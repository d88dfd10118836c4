package engine

import (
	"sort"
	"sync"
)

// skuLocks is a keyed mutex table giving per-SKU mutual exclusion to every
// read-then-write path (order decrement, sync write-back, manual adjustment).
// Two concurrent callers can therefore never both pass a stock check and
// both decrement the same product.
type skuLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSKULocks() *skuLocks {
	return &skuLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *skuLocks) lockFor(sku string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[sku]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sku] = m
	}
	return m
}

// Lock acquires the mutex for one SKU and returns its unlock func.
func (l *skuLocks) Lock(sku string) func() {
	m := l.lockFor(sku)
	m.Lock()
	return m.Unlock
}

// LockAll acquires mutexes for a set of SKUs in sorted order, so two orders
// sharing SKUs cannot deadlock against each other. Duplicates are collapsed.
// Returns a single unlock func releasing all of them in reverse order.
func (l *skuLocks) LockAll(skus []string) func() {
	unique := make([]string, 0, len(skus))
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		if !seen[sku] {
			seen[sku] = true
			unique = append(unique, sku)
		}
	}
	sort.Strings(unique)

	held := make([]*sync.Mutex, 0, len(unique))
	for _, sku := range unique {
		m := l.lockFor(sku)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
