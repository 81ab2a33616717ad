// Package worker bootstraps the background schedule scanner: the River
// job queue on Postgres, a plain ticker loop on SQLite.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/stockpulse/stockpulse/internal/service"
)

// ScheduleScanArgs is the periodic job that scans every active alert
// schedule and runs the due ones.
type ScheduleScanArgs struct{}

// Kind returns the unique job type identifier for schedule scan jobs.
func (ScheduleScanArgs) Kind() string { return "schedule_scan" }

type scheduleScanWorker struct {
	river.WorkerDefaults[ScheduleScanArgs]
	runner *service.AlertRunner
	log    *slog.Logger
}

func (w *scheduleScanWorker) Work(ctx context.Context, _ *river.Job[ScheduleScanArgs]) error {
	results := w.runner.RunScheduled(ctx)
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	w.log.Info("schedule scan complete", "ran", len(results), "failed", failed)
	return nil
}

// Queue is the interface exposed by both the River client and tickerQueue.
type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Client wraps river.Client and exposes a Start/Stop lifecycle.
type Client struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// Start begins processing queued jobs, including the periodic scan.
func (c *Client) Start(ctx context.Context) error { return c.client.Start(ctx) }

// Stop gracefully shuts down the worker client.
func (c *Client) Stop(ctx context.Context) error { return c.client.Stop(ctx) }

// tickerQueue runs the schedule scan on a fixed interval without a job
// queue. Used when River is unavailable (DB_DRIVER=sqlite).
type tickerQueue struct {
	runner   *service.AlertRunner
	interval time.Duration
	log      *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func (q *tickerQueue) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	q.done = make(chan struct{})
	q.log.Info("ticker scheduler started (sqlite driver, River requires postgres)",
		"interval", q.interval)

	go func() {
		defer close(q.done)
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				results := q.runner.RunScheduled(runCtx)
				if len(results) > 0 {
					q.log.Info("schedule scan complete", "ran", len(results))
				}
			}
		}
	}()
	return nil
}

func (q *tickerQueue) Stop(ctx context.Context) error {
	if q.cancel == nil {
		return nil
	}
	q.cancel()
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New creates a queue implementation appropriate for the given driver.
//   - "postgres": a River client backed by pool, with the schedule scan
//     registered as a periodic job.
//   - anything else: a ticker loop driving the same scan.
//
// pool may be nil when driver != "postgres".
func New(ctx context.Context, pool *pgxpool.Pool, driver string, concurrency int, runner *service.AlertRunner, scanInterval time.Duration, log *slog.Logger) (Queue, error) {
	if driver != "postgres" {
		return &tickerQueue{runner: runner, interval: scanInterval, log: log}, nil
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &scheduleScanWorker{runner: runner, log: log})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: concurrency},
		},
		Workers: workers,
		Logger:  log,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(scanInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ScheduleScanArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Client{client: client, log: log}, nil
}

// MigrateRiver runs River's built-in schema migrations against the given pool.
// Only call this when DB_DRIVER=postgres.
func MigrateRiver(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
