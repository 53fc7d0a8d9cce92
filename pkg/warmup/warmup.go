// Package warmup fills cache entries ahead of demand with a bounded worker
// pool.
//
// Warming is best effort: a failing job is logged and reported but does not
// stop the others. Cancelling the context stops the workers and returns the
// partial report.
//
// Example usage:
//
//	w := warmup.New(warmup.DefaultConfig())
//	report, err := w.Run(ctx, []warmup.Job{
//		{Key: analytics.OccupancyKey("P1"), Fill: func(ctx context.Context) error {
//			_, err := stats.Occupancy(ctx, "P1")
//			return err
//		}},
//	})
package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rental-cache/pkg/logging"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of jobs running at once.
	MaxConcurrency int

	// Timeout bounds each job.
	Timeout time.Duration
}

// DefaultConfig returns a configuration suited to a single Redis node and
// a database-backed source.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		Timeout:        10 * time.Second,
	}
}

// Job fills one cache entry. Fill typically calls a read-through method of
// a feature client.
type Job struct {
	Key  string
	Fill func(ctx context.Context) error
}

// Report summarises a warmup run.
type Report struct {
	Total    int
	Filled   int
	Failed   map[string]error
	Duration time.Duration
}

type jobResult struct {
	key string
	err error
}

// Warmer runs warmup jobs.
type Warmer struct {
	config Config
	logger zerolog.Logger
}

// New creates a warmer. Non-positive settings fall back to DefaultConfig.
func New(config Config) *Warmer {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Warmer{
		config: config,
		logger: logging.NewLogger("warmup"),
	}
}

// Run executes jobs and waits for them to finish. The returned error is
// non-nil if the context was cancelled or any job failed; the report is
// always populated with what completed.
func (w *Warmer) Run(ctx context.Context, jobs []Job) (Report, error) {
	start := time.Now()
	report := Report{Total: len(jobs), Failed: make(map[string]error)}

	if len(jobs) == 0 {
		return report, nil
	}

	queue := make(chan Job)
	results := make(chan jobResult, len(jobs))

	workers := w.config.MaxConcurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.worker(ctx, queue, results, &wg, i)
	}

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		if result.err != nil {
			WarmupJobs.WithLabelValues("failed").Inc()
			report.Failed[result.key] = result.err
			continue
		}
		WarmupJobs.WithLabelValues("filled").Inc()
		report.Filled++
	}
	report.Duration = time.Since(start)

	w.logger.Info().
		Int("total", report.Total).
		Int("filled", report.Filled).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Warmup complete")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("warmup cancelled (%d/%d filled): %w", report.Filled, report.Total, err)
	}
	if len(report.Failed) > 0 {
		return report, fmt.Errorf("warmup: %d/%d jobs failed", len(report.Failed), report.Total)
	}
	return report, nil
}

// worker processes jobs from the queue
func (w *Warmer) worker(ctx context.Context, queue <-chan Job, results chan<- jobResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for job := range queue {
		if ctx.Err() != nil {
			w.logger.Debug().
				Int("worker_id", workerID).
				Int("jobs_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		err := job.Fill(jobCtx)
		cancel()

		if err != nil {
			w.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("key", job.Key).
				Msg("Warmup job failed")
		}

		results <- jobResult{key: job.Key, err: err}
		processed++
	}

	if processed > 0 {
		w.logger.Debug().
			Int("worker_id", workerID).
			Int("jobs_processed", processed).
			Msg("Worker completed")
	}
}
