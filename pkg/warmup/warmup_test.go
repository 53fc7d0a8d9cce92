package warmup

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})
	if w.config.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", w.config.MaxConcurrency)
	}
	if w.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", w.config.Timeout)
	}
}

func TestRun_AllJobs(t *testing.T) {
	w := New(Config{MaxConcurrency: 3, Timeout: time.Second})

	var running, peak, filled atomic.Int32
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{
			Key: "analytics:occupancy:P" + strconv.Itoa(i),
			Fill: func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				filled.Add(1)
				return nil
			},
		}
	}

	report, err := w.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Total != 20 || report.Filled != 20 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}
	if filled.Load() != 20 {
		t.Errorf("filled = %d, want 20", filled.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestRun_PartialFailure(t *testing.T) {
	w := New(Config{MaxConcurrency: 2, Timeout: time.Second})
	boom := errors.New("source down")

	jobs := []Job{
		{Key: "property:P1", Fill: func(ctx context.Context) error { return nil }},
		{Key: "property:P2", Fill: func(ctx context.Context) error { return boom }},
		{Key: "property:P3", Fill: func(ctx context.Context) error { return nil }},
	}

	report, err := w.Run(context.Background(), jobs)
	if err == nil {
		t.Fatal("Run() should report failed jobs")
	}
	if report.Filled != 2 {
		t.Errorf("Filled = %d, want 2", report.Filled)
	}
	if !errors.Is(report.Failed["property:P2"], boom) {
		t.Errorf("Failed = %v, want property:P2 -> %v", report.Failed, boom)
	}
}

func TestRun_JobTimeout(t *testing.T) {
	w := New(Config{MaxConcurrency: 1, Timeout: 10 * time.Millisecond})

	jobs := []Job{{Key: "document:d1", Fill: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}

	report, err := w.Run(context.Background(), jobs)
	if err == nil {
		t.Fatal("Run() should fail when a job times out")
	}
	if !errors.Is(report.Failed["document:d1"], context.DeadlineExceeded) {
		t.Errorf("Failed = %v, want deadline exceeded", report.Failed)
	}
}

func TestRun_Cancelled(t *testing.T) {
	w := New(Config{MaxConcurrency: 1, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{Key: "property:P" + strconv.Itoa(i), Fill: func(ctx context.Context) error {
			cancel()
			return nil
		}}
	}

	report, err := w.Run(ctx, jobs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report.Filled >= report.Total {
		t.Errorf("Filled = %d of %d, want partial", report.Filled, report.Total)
	}
}

func TestRun_NoJobs(t *testing.T) {
	report, err := New(DefaultConfig()).Run(context.Background(), nil)
	if err != nil || report.Total != 0 {
		t.Errorf("Run(nil) = %+v, %v", report, err)
	}
}
