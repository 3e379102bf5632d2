package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/citypulse/city-events/internal/event"
	"github.com/citypulse/city-events/internal/gate"
	"github.com/citypulse/city-events/internal/logger"
	"github.com/citypulse/city-events/internal/normalize"
	"github.com/citypulse/city-events/internal/reconcile"
	"github.com/citypulse/city-events/internal/scraper"
)

// DefaultInterval is the time between ingestion cycles.
const DefaultInterval = time.Hour

// SourceSummary counts one adapter's contribution to a cycle.
type SourceSummary struct {
	Seen     int `json:"seen"`
	Dropped  int `json:"dropped"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// CycleSummary is the per-cycle observability record, the only output of a
// cycle beyond the store mutation itself.
type CycleSummary struct {
	PerSource map[event.Source]*SourceSummary `json:"per_source"`
	Expired   int64                           `json:"expired"`
	Duration  time.Duration                   `json:"duration"`
}

// Scheduler owns the cycle timeline: immediate first run, then one cycle
// per interval, never overlapping.
type Scheduler struct {
	adapters   []scraper.Adapter
	reconciler *reconcile.Reconciler
	gate       *gate.Gate
	interval   time.Duration

	cycleMu sync.Mutex // held for the duration of a cycle

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler over the given adapters. The gate's policy cache
// is reset at the start of every cycle.
func New(adapters []scraper.Adapter, r *reconcile.Reconciler, g *gate.Gate, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		adapters:   adapters,
		reconciler: r,
		gate:       g,
		interval:   interval,
	}
}

// Start begins the timer loop: one cycle immediately, then one per
// interval. Returns after spawning the loop; use Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)
	logger.Info("scheduler started", logger.Fields{
		"interval": s.interval.String(),
		"adapters": len(s.adapters),
	})
}

// Stop cancels the timer and waits for an in-flight cycle to drain.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logger.Info("scheduler stopped", nil)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full ingestion cycle: every adapter, then the
// expiry sweep. If a cycle is already running the trigger is skipped (not
// queued) with a warning, and ok=false is returned.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleSummary, bool) {
	if !s.cycleMu.TryLock() {
		logger.Warn("cycle trigger skipped, previous cycle still running", nil)
		return CycleSummary{}, false
	}
	defer s.cycleMu.Unlock()

	start := time.Now()
	summary := CycleSummary{PerSource: make(map[event.Source]*SourceSummary)}

	s.gate.ResetCycle()

	for _, adapter := range s.adapters {
		// Shutdown drains between adapters: finish the one in flight,
		// never start the next.
		if ctx.Err() != nil {
			logger.Warn("cycle interrupted by shutdown", logger.Fields{
				"source": string(adapter.Source()),
			})
			break
		}

		src := adapter.Source()
		srcSummary := &SourceSummary{}
		summary.PerSource[src] = srcSummary
		s.runAdapter(ctx, adapter, srcSummary)
	}

	now := time.Now().UTC()
	expired, err := s.reconciler.Sweep(ctx, now)
	if err != nil {
		logger.Error("expiry sweep failed", nil, err)
	}
	summary.Expired = expired
	summary.Duration = time.Since(start)
	logger.RecordTiming("cycle.duration", summary.Duration)

	logCycle(summary)
	return summary, true
}

// runAdapter wraps one adapter's collect+normalize+reconcile so that a
// fault, including a panic escaping site-specific parsing, is contained
// and attributed, leaving the other adapters unaffected.
func (s *Scheduler) runAdapter(ctx context.Context, adapter scraper.Adapter, sum *SourceSummary) {
	defer func() {
		if r := recover(); r != nil {
			sum.Errors++
			logger.IncrCounter("ingest.adapter_failures")
			logger.Error("adapter failed", logger.Fields{
				"source": string(adapter.Source()),
			}, fmt.Errorf("panic: %v", r))
		}
	}()

	listings, errs := adapter.Collect(ctx)
	sum.Seen = len(listings)
	sum.Errors += errs

	now := time.Now().UTC()
	normalized := make([]*event.Event, 0, len(listings))
	for _, raw := range listings {
		evt, ok := normalize.Normalize(raw, now)
		if !ok {
			sum.Dropped++
			continue
		}
		normalized = append(normalized, evt)
	}

	result := s.reconciler.Reconcile(ctx, normalized, now)
	sum.Inserted = result.Inserted
	sum.Updated = result.Updated
	sum.Skipped = result.Skipped
}

func logCycle(summary CycleSummary) {
	fields := logger.Fields{
		"expired":  summary.Expired,
		"duration": summary.Duration.String(),
	}
	for src, sum := range summary.PerSource {
		fields[string(src)] = map[string]int{
			"seen":     sum.Seen,
			"dropped":  sum.Dropped,
			"inserted": sum.Inserted,
			"updated":  sum.Updated,
			"skipped":  sum.Skipped,
			"errors":   sum.Errors,
		}
	}
	logger.Info("cycle complete", fields)
}
