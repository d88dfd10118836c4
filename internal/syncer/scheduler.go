// Package syncer reconciles the local catalog against the remote catalog
// source: full pulls that write through the engine (so rules still fire) and
// interval-driven incremental pushes of stale local quantities.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/roach88/stockd/internal/catalog"
	"github.com/roach88/stockd/internal/engine"
	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/metrics"
)

// Defaults for the scheduler's timing knobs.
const (
	DefaultStaleness   = time.Hour
	DefaultInterval    = 5 * time.Minute
	DefaultItemTimeout = 10 * time.Second
)

// Scheduler owns the sync state machine. Jobs are transient: the registry
// lives in memory and is not persisted across restarts.
type Scheduler struct {
	eng    *engine.Engine
	source catalog.Source
	cron   *cron.Cron

	staleness   time.Duration
	interval    time.Duration
	itemTimeout time.Duration

	mu          sync.Mutex
	jobs        []*ledger.SyncJob // newest first
	fullCancel  context.CancelFunc
	fullCurrent *ledger.SyncJob
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStaleness sets the incremental staleness threshold.
func WithStaleness(d time.Duration) Option {
	return func(s *Scheduler) { s.staleness = d }
}

// WithInterval sets the incremental sync cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithItemTimeout bounds each remote call (fetch and per-SKU push).
func WithItemTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.itemTimeout = d }
}

// New creates a Scheduler over an engine and a remote source.
func New(eng *engine.Engine, source catalog.Source, opts ...Option) *Scheduler {
	s := &Scheduler{
		eng:         eng,
		source:      source,
		cron:        cron.New(),
		staleness:   DefaultStaleness,
		interval:    DefaultInterval,
		itemTimeout: DefaultItemTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one full sync immediately, then schedules incremental syncs on
// the configured interval. Stop cancels both.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunIncremental(ctx); err != nil {
			slog.Error("incremental sync failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule incremental sync: %w", err)
	}

	s.cron.Start()

	if _, err := s.RunFull(ctx); err != nil {
		slog.Error("startup full sync failed", "error", err)
	}
	return nil
}

// Stop halts the cron schedule and preempts any running full sync.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	if s.fullCancel != nil {
		s.fullCancel()
	}
	s.mu.Unlock()
}

// Jobs returns a snapshot of the job registry, newest first.
func (s *Scheduler) Jobs() []ledger.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.SyncJob, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	return out
}

func (s *Scheduler) register(mode ledger.SyncMode) *ledger.SyncJob {
	job := &ledger.SyncJob{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Mode:      mode,
		Status:    ledger.SyncRunning,
		StartedAt: s.eng.Now(),
	}
	s.mu.Lock()
	s.jobs = append([]*ledger.SyncJob{job}, s.jobs...)
	s.mu.Unlock()
	return job
}

// finish moves a job to a terminal status unless it was already superseded.
func (s *Scheduler) finish(job *ledger.SyncJob, status ledger.SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Status != ledger.SyncRunning {
		return
	}
	job.Status = status
	job.FinishedAt = s.eng.Now()
}

// update mutates a registered job under the registry lock so Jobs snapshots
// never observe a half-written counter.
func (s *Scheduler) update(job *ledger.SyncJob, fn func(*ledger.SyncJob)) {
	s.mu.Lock()
	fn(job)
	s.mu.Unlock()
}

// snapshot copies a job under the registry lock. A full sync can be marked
// superseded by a later one, so plain struct reads may race with that write.
func (s *Scheduler) snapshot(job *ledger.SyncJob) ledger.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *job
}

// RunFull pulls the complete remote catalog and writes every record through
// the engine's sync path. A full sync already in flight is preempted and
// marked superseded rather than being allowed to race on write-back.
func (s *Scheduler) RunFull(ctx context.Context) (ledger.SyncJob, error) {
	job := s.register(ledger.SyncFull)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.fullCurrent != nil && s.fullCurrent.Status == ledger.SyncRunning {
		s.fullCurrent.Status = ledger.SyncSuperseded
		s.fullCurrent.FinishedAt = s.eng.Now()
		s.fullCancel()
		slog.Info("full sync superseded", "job_id", s.fullCurrent.ID)
	}
	s.fullCurrent = job
	s.fullCancel = cancel
	s.mu.Unlock()
	defer cancel()

	slog.Info("full sync started", "job_id", job.ID)

	fetchCtx, fetchCancel := context.WithTimeout(runCtx, s.itemTimeout)
	records, err := s.source.FetchCatalog(fetchCtx)
	fetchCancel()
	if err != nil {
		s.finish(job, ledger.SyncFailed)
		s.eng.Alerts().Raise("sync",
			fmt.Sprintf("full sync failed: %v", err), ledger.SeverityHigh)
		return s.snapshot(job), fmt.Errorf("full sync: %w", err)
	}

	for i, rec := range records {
		if runCtx.Err() != nil {
			// Preempted mid-batch; the job is already marked superseded.
			return s.snapshot(job), nil
		}

		created, err := s.applyRecord(runCtx, rec)
		if err != nil {
			s.update(job, func(j *ledger.SyncJob) {
				j.Seen++
				j.Errored++
			})
			metrics.SyncItems.WithLabelValues(string(ledger.SyncFull), "error").Inc()
			itemErr := &ledger.SyncItemError{SKU: rec.SKU, Err: err}
			slog.Warn("sync item failed", "sku", rec.SKU, "error", err)
			s.eng.Alerts().Raise("sync", itemErr.Error(), ledger.SeverityWarning)
			continue
		}
		s.update(job, func(j *ledger.SyncJob) {
			j.Seen++
			if created {
				j.Created++
			} else {
				j.Updated++
			}
		})
		metrics.SyncItems.WithLabelValues(string(ledger.SyncFull), "ok").Inc()
		slog.Debug("full sync progress", "job_id", job.ID, "processed", i+1, "total", len(records))
	}

	s.finish(job, ledger.SyncCompleted)
	done := s.snapshot(job)
	s.eng.Events().Publish(engine.Event{
		Kind: engine.EventSyncCompleted,
		At:   s.eng.Now(),
		Sync: &done,
	})
	s.eng.Alerts().Raise("sync",
		fmt.Sprintf("full sync completed: %d records (%d new, %d updated, %d errors)",
			done.Seen, done.Created, done.Updated, done.Errored),
		ledger.SeveritySuccess)

	slog.Info("full sync completed",
		"job_id", done.ID,
		"seen", done.Seen,
		"created", done.Created,
		"updated", done.Updated,
		"errored", done.Errored,
	)
	return done, nil
}

func (s *Scheduler) applyRecord(ctx context.Context, rec catalog.Record) (created bool, err error) {
	itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	return s.eng.SyncUpsert(itemCtx, engine.ProductInput{
		SKU:          rec.SKU,
		Name:         rec.Name,
		Category:     rec.Category,
		Price:        rec.Price,
		Quantity:     rec.Quantity,
		ReorderPoint: rec.ReorderPoint,
		Vendor:       rec.Vendor,
	}, s.eng.Now())
}

// RunIncremental pushes the local quantity of every stale product to the
// remote source and refreshes its last-synced stamp on success. Individual
// SKU failures are recorded and do not abort the rest of the batch.
func (s *Scheduler) RunIncremental(ctx context.Context) (ledger.SyncJob, error) {
	job := s.register(ledger.SyncIncremental)

	cutoff := s.eng.Now().Add(-s.staleness)
	stale, err := s.eng.Store().ListStaleProducts(ctx, cutoff)
	if err != nil {
		s.finish(job, ledger.SyncFailed)
		s.eng.Alerts().Raise("sync",
			fmt.Sprintf("incremental sync failed: %v", err), ledger.SeverityHigh)
		return s.snapshot(job), fmt.Errorf("incremental sync: %w", err)
	}

	slog.Info("incremental sync started", "job_id", job.ID, "stale", len(stale))

	for i, p := range stale {
		if ctx.Err() != nil {
			s.finish(job, ledger.SyncFailed)
			return s.snapshot(job), ctx.Err()
		}

		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
		err := s.source.PushQuantity(itemCtx, p.SKU, p.Quantity)
		cancel()
		if err != nil {
			s.update(job, func(j *ledger.SyncJob) {
				j.Seen++
				j.Errored++
			})
			metrics.SyncItems.WithLabelValues(string(ledger.SyncIncremental), "error").Inc()
			itemErr := &ledger.SyncItemError{SKU: p.SKU, Err: err}
			slog.Warn("incremental push failed", "sku", p.SKU, "error", err)
			s.eng.Alerts().Raise("sync", itemErr.Error(), ledger.SeverityWarning)
			continue
		}

		if err := s.eng.Store().TouchLastSynced(ctx, p.SKU, s.eng.Now()); err != nil {
			s.update(job, func(j *ledger.SyncJob) {
				j.Seen++
				j.Errored++
			})
			metrics.SyncItems.WithLabelValues(string(ledger.SyncIncremental), "error").Inc()
			slog.Warn("last-synced update failed", "sku", p.SKU, "error", err)
			continue
		}
		s.update(job, func(j *ledger.SyncJob) {
			j.Seen++
			j.Updated++
		})
		metrics.SyncItems.WithLabelValues(string(ledger.SyncIncremental), "ok").Inc()
		slog.Debug("incremental sync progress", "job_id", job.ID, "processed", i+1, "total", len(stale))
	}

	s.finish(job, ledger.SyncCompleted)
	done := s.snapshot(job)
	s.eng.Events().Publish(engine.Event{
		Kind: engine.EventSyncCompleted,
		At:   s.eng.Now(),
		Sync: &done,
	})

	slog.Info("incremental sync completed",
		"job_id", done.ID,
		"seen", done.Seen,
		"pushed", done.Updated,
		"errored", done.Errored,
	)
	return done, nil
}
