package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/store"
	"github.com/roach88/stockd/internal/testutil"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestEngine creates an engine over a throwaway store with a manual
// wall clock fixed at testStart.
func setupTestEngine(t *testing.T, opts ...Option) (*Engine, *testutil.ManualClock) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewManualClock(testStart)
	e, err := New(context.Background(), s, append([]Option{WithWallClock(clock)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, clock
}

func input(sku string, price float64, quantity, reorderPoint int) ProductInput {
	return ProductInput{
		SKU:          sku,
		Name:         "Widget " + sku,
		Category:     "hardware",
		Price:        price,
		Quantity:     quantity,
		ReorderPoint: reorderPoint,
		Vendor:       "Acme",
	}
}

func TestCreateProduct_RecordsInitialStock(t *testing.T) {
	e, _ := setupTestEngine(t)
	ctx := context.Background()

	p, err := e.CreateProduct(ctx, input("SKU-1", 9.99, 25, 5))
	require.NoError(t, err)
	assert.Equal(t, 25, p.Quantity)
	assert.Equal(t, ledger.ProvenanceManual, p.Provenance)
	assert.Equal(t, testStart, p.CreatedAt)

	movements, err := e.Store().ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, ledger.MovementAdjustment, movements[0].Type)
	assert.Equal(t, 25, movements[0].Delta)
	assert.Equal(t, 25, movements[0].Resulting)
	assert.Equal(t, "initial stock", movements[0].Reason)
	assert.Equal(t, int64(1), movements[0].Seq)
}

func TestCreateProduct_ZeroQuantityHasNoMovement(t *testing.T) {
	e, _ := setupTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateProduct(ctx, input("SKU-1", 9.99, 0, 0))
	require.NoError(t, err)

	movements, err := e.Store().ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestCreateProduct_DuplicateRejected(t *testing.T) {
	e, _ := setupTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateProduct(ctx, input("SKU-1", 9.99, 25, 5))
	require.NoError(t, err)

	_, err = e.CreateProduct(ctx, input("SKU-1", 9.99, 25, 5))
	assert.True(t, ledger.IsValidation(err))
}

func TestUpdateProduct_RequiresExisting(t *testing.T) {
	e, _ := setupTestEngine(t)

	_, err := e.UpdateProduct(context.Background(), input("missing", 9.99, 5, 5))
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateProduct_QuantityChangeIsAMovement(t *testing.T) {
	e, clock := setupTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateProduct(ctx, input("SKU-1", 9.99, 25, 5))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	p, err := e.UpdateProduct(ctx, input("SKU-1", 9.99, 30, 5))
	require.NoError(t, err)
	assert.Equal(t, 30, p.Quantity)
	assert.Equal(t, testStart, p.CreatedAt, "created_at preserved")
	assert.Equal(t, testStart.Add(time.Minute), p.UpdatedAt)

	movements, err := e.Store().ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, 5, movements[0].Delta)
	assert.Equal(t, "manual adjustment", movements[0].Reason)
}

func TestEngine_SeqClockResumesAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)

	e1, err := New(ctx, s, WithWallClock(testutil.NewManualClock(testStart)))
	require.NoError(t, err)
	_, err = e1.CreateProduct(ctx, input("SKU-1", 9.99, 25, 5))
	require.NoError(t, err)
	e1.Close()
	require.NoError(t, s.Close())

	s, err = store.Open(dir + "/test.db")
	require.NoError(t, err)
	defer s.Close()

	e2, err := New(ctx, s, WithWallClock(testutil.NewManualClock(testStart.Add(time.Hour))))
	require.NoError(t, err)
	defer e2.Close()

	_, err = e2.UpdateProduct(ctx, input("SKU-1", 9.99, 30, 5))
	require.NoError(t, err)

	movements, err := s.ListMovements(ctx, "SKU-1", 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(2), movements[0].Seq, "sequence numbers never repeat after restart")
}

func TestSyncUpsert(t *testing.T) {
	e, clock := setupTestEngine(t)
	ctx := context.Background()

	created, err := e.SyncUpsert(ctx, input("SKU-1", 9.99, 12, 5), clock.Now())
	require.NoError(t, err)
	assert.True(t, created)

	p, err := e.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.ProvenanceSync, p.Provenance)
	assert.Equal(t, testStart, p.LastSynced)

	// A remote quantity differing from the local one lands as a
	// sync-correction movement.
	clock.Advance(time.Minute)
	created, err = e.SyncUpsert(ctx, input("SKU-1", 9.99, 9, 5), clock.Now())
	require.NoError(t, err)
	assert.False(t, created)

	movements, err := e.Store().ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, ledger.MovementSyncCorrection, movements[0].Type)
	assert.Equal(t, -3, movements[0].Delta)

	// Same quantity again: last_synced moves, no movement.
	clock.Advance(time.Minute)
	_, err = e.SyncUpsert(ctx, input("SKU-1", 9.99, 9, 5), clock.Now())
	require.NoError(t, err)

	movements, err = e.Store().ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	p, err = e.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(2*time.Minute), p.LastSynced)
}

func TestReconcile_AfterMixedHistory(t *testing.T) {
	e, clock := setupTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateProduct(ctx, input("SKU-1", 9.99, 40, 5))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.UpdateProduct(ctx, input("SKU-1", 9.99, 33, 5))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.SyncUpsert(ctx, input("SKU-1", 9.99, 35, 5), clock.Now())
	require.NoError(t, err)

	ok, err := e.Reconcile(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetRuleEnabled_UnknownRule(t *testing.T) {
	e, _ := setupTestEngine(t)

	err := e.SetRuleEnabled("no-such-rule", false)
	assert.True(t, ledger.IsNotFound(err))
}
