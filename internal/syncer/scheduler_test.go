package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockd/internal/catalog"
	"github.com/roach88/stockd/internal/engine"
	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/store"
	"github.com/roach88/stockd/internal/testutil"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestScheduler(t *testing.T, source catalog.Source, opts ...Option) (*Scheduler, *engine.Engine, *testutil.ManualClock) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewManualClock(testStart)
	eng, err := engine.New(context.Background(), st, engine.WithWallClock(clock))
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	return New(eng, source, opts...), eng, clock
}

func record(sku string, quantity, reorderPoint int) catalog.Record {
	return catalog.Record{
		SKU:          sku,
		Name:         "Widget " + sku,
		Category:     "hardware",
		Price:        9.99,
		Quantity:     quantity,
		ReorderPoint: reorderPoint,
		Vendor:       "Acme",
	}
}

func TestRunFull_CreatesAndUpdates(t *testing.T) {
	source := catalog.NewFakeSource(
		record("SKU-1", 20, 5),
		record("SKU-2", 15, 5),
	)
	s, eng, _ := setupTestScheduler(t, source)
	ctx := context.Background()

	job, err := s.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.SyncCompleted, job.Status)
	assert.Equal(t, 2, job.Seen)
	assert.Equal(t, 2, job.Created)
	assert.Equal(t, 0, job.Updated)
	assert.Equal(t, 0, job.Errored)

	p, err := eng.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Quantity)
	assert.Equal(t, ledger.ProvenanceSync, p.Provenance)
	assert.Equal(t, testStart, p.LastSynced)

	// Second pass over the same catalog updates in place.
	source.Put(record("SKU-1", 18, 5))
	job, err = s.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, job.Created)
	assert.Equal(t, 2, job.Updated)

	// The changed remote quantity landed as a sync correction.
	movements, err := eng.Store().ListMovements(ctx, "SKU-1", 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, ledger.MovementSyncCorrection, movements[0].Type)
	assert.Equal(t, -2, movements[0].Delta)
}

func TestRunFull_RulesFireThroughSync(t *testing.T) {
	source := catalog.NewFakeSource(record("SKU-LOW", 2, 6))
	s, eng, _ := setupTestScheduler(t, source)

	_, err := s.RunFull(context.Background())
	require.NoError(t, err)

	var reorder, critical int
	for _, a := range eng.Alerts().List(false) {
		switch a.Category {
		case "reorder":
			reorder++
		case "stock":
			critical++
		}
	}
	assert.Equal(t, 1, reorder)
	assert.Equal(t, 1, critical)
}

func TestRunFull_FetchFailure(t *testing.T) {
	source := catalog.NewFakeSource()
	source.FailFetch(errors.New("remote down"))
	s, eng, _ := setupTestScheduler(t, source)

	job, err := s.RunFull(context.Background())
	require.Error(t, err)
	assert.Equal(t, ledger.SyncFailed, job.Status)

	list := eng.Alerts().List(false)
	require.Len(t, list, 1)
	assert.Equal(t, "sync", list[0].Category)
	assert.Equal(t, ledger.SeverityHigh, list[0].Severity)
}

func TestRunFull_ItemFailureIsolation(t *testing.T) {
	bad := record("SKU-BAD", -5, 5) // negative quantity fails validation
	source := catalog.NewFakeSource(
		record("SKU-1", 20, 5),
		bad,
		record("SKU-2", 15, 5),
	)
	s, eng, _ := setupTestScheduler(t, source)
	ctx := context.Background()

	job, err := s.RunFull(ctx)
	require.NoError(t, err, "item failures do not fail the batch")
	assert.Equal(t, ledger.SyncCompleted, job.Status)
	assert.Equal(t, 3, job.Seen)
	assert.Equal(t, 2, job.Created)
	assert.Equal(t, 1, job.Errored)

	// The neighbors of the bad record still landed.
	_, err = eng.GetProduct(ctx, "SKU-1")
	assert.NoError(t, err)
	_, err = eng.GetProduct(ctx, "SKU-2")
	assert.NoError(t, err)
	_, err = eng.GetProduct(ctx, "SKU-BAD")
	assert.True(t, ledger.IsNotFound(err))

	var warnings int
	for _, a := range eng.Alerts().List(false) {
		if a.Category == "sync" && a.Severity == ledger.SeverityWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestRunFull_PublishesCompletionEvent(t *testing.T) {
	source := catalog.NewFakeSource(record("SKU-1", 20, 5))
	s, eng, _ := setupTestScheduler(t, source)

	sub := eng.Events().Subscribe(16)
	require.NotNil(t, sub)

	job, err := s.RunFull(context.Background())
	require.NoError(t, err)

	for ev := range sub.C() {
		if ev.Kind != engine.EventSyncCompleted {
			continue
		}
		require.NotNil(t, ev.Sync)
		assert.Equal(t, job.ID, ev.Sync.ID)
		assert.Equal(t, ledger.SyncFull, ev.Sync.Mode)
		return
	}
	t.Fatal("no sync.completed event observed")
}

// gateSource blocks the first FetchCatalog until the test releases it, so a
// second full sync can preempt the first mid-flight.
type gateSource struct {
	inner   *catalog.FakeSource
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func newGateSource(inner *catalog.FakeSource) *gateSource {
	return &gateSource{
		inner:   inner,
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
}

func (g *gateSource) FetchCatalog(ctx context.Context) ([]catalog.Record, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.inner.FetchCatalog(ctx)
}

func (g *gateSource) PushQuantity(ctx context.Context, sku string, quantity int) error {
	return g.inner.PushQuantity(ctx, sku, quantity)
}

func TestRunFull_NewFullSupersedesRunning(t *testing.T) {
	source := newGateSource(catalog.NewFakeSource(record("SKU-1", 20, 5)))
	s, _, _ := setupTestScheduler(t, source)
	ctx := context.Background()

	firstDone := make(chan ledger.SyncJob, 1)
	go func() {
		job, _ := s.RunFull(ctx)
		firstDone <- job
	}()
	<-source.entered

	second, err := s.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.SyncCompleted, second.Status)
	assert.Equal(t, 1, second.Seen)

	first := <-firstDone
	assert.Equal(t, ledger.SyncSuperseded, first.Status)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID, "newest first")
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestJobs_SnapshotDuringRunningFull(t *testing.T) {
	source := catalog.NewFakeSource()
	for i := 0; i < 200; i++ {
		source.Put(record(fmt.Sprintf("SKU-%03d", i), 20, 5))
	}
	s, _, _ := setupTestScheduler(t, source)

	// Poll the registry while the sync is in flight. Counters must read as
	// consistent snapshots at every point.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, j := range s.Jobs() {
				assert.LessOrEqual(t, j.Created+j.Updated+j.Errored, j.Seen)
			}
		}
	}()

	job, err := s.RunFull(context.Background())
	close(done)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, ledger.SyncCompleted, job.Status)
	assert.Equal(t, 200, job.Seen)
	assert.Equal(t, 200, job.Created)
}

func TestRunIncremental_PushesOnlyStale(t *testing.T) {
	source := catalog.NewFakeSource(
		record("SKU-1", 20, 5),
		record("SKU-2", 15, 5),
	)
	s, eng, clock := setupTestScheduler(t, source, WithStaleness(time.Hour))
	ctx := context.Background()

	_, err := s.RunFull(ctx)
	require.NoError(t, err)

	// Everything was just synced; nothing is stale yet.
	job, err := s.RunIncremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.SyncCompleted, job.Status)
	assert.Equal(t, 0, job.Seen)
	assert.Equal(t, 0, source.PushCount())

	// Sell some stock and cross the staleness window.
	_, err = eng.SubmitOrder(ctx, engine.OrderRequest{
		Customer: "alice",
		Items:    []engine.OrderItem{{SKU: "SKU-1", Quantity: 3}},
	})
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	job, err = s.RunIncremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Seen)
	assert.Equal(t, 2, job.Updated)

	pushed, ok := source.Pushed("SKU-1")
	require.True(t, ok)
	assert.Equal(t, 17, pushed, "local quantity wins the push")

	// The push refreshed last_synced, so a rerun sees nothing stale.
	job, err = s.RunIncremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, job.Seen)
}

func TestRunIncremental_PerSKUFailureIsolation(t *testing.T) {
	source := catalog.NewFakeSource(
		record("SKU-1", 20, 5),
		record("SKU-2", 15, 5),
	)
	s, eng, clock := setupTestScheduler(t, source, WithStaleness(time.Hour))
	ctx := context.Background()

	_, err := s.RunFull(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	source.FailSKU("SKU-1")

	job, err := s.RunIncremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.SyncCompleted, job.Status)
	assert.Equal(t, 2, job.Seen)
	assert.Equal(t, 1, job.Updated)
	assert.Equal(t, 1, job.Errored)

	// The failing SKU keeps its stale stamp and retries next round.
	p, err := eng.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, p.LastSynced.Before(clock.Now()))

	p, err = eng.GetProduct(ctx, "SKU-2")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), p.LastSynced)
}
