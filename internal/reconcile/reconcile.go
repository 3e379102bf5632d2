package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/citypulse/city-events/internal/event"
	"github.com/citypulse/city-events/internal/logger"
	"github.com/citypulse/city-events/internal/storage"
)

// Reconciler is the single writer of scraped fields in the catalog.
type Reconciler struct {
	mu    sync.Mutex
	store *storage.Store
}

// New creates a Reconciler over the given store.
func New(store *storage.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Summary counts the outcome of one reconciled batch.
type Summary struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Reconcile upserts a batch of normalized events. A store failure on a
// single record is logged and counted as skipped; the batch continues.
func (r *Reconciler) Reconcile(ctx context.Context, events []*event.Event, now time.Time) Summary {
	var sum Summary
	for _, evt := range events {
		switch outcome := r.upsert(ctx, evt, now); outcome {
		case outcomeInserted:
			sum.Inserted++
		case outcomeUpdated:
			sum.Updated++
		case outcomeSkipped:
			sum.Skipped++
		}
	}
	return sum
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// upsert performs one read-modify-write keyed by ticket URL. The mutex
// serializes the lookup and write, so adapters that ever resolve to the
// same key (URL redirects) cannot race each other into duplicate rows or
// lost updates.
func (r *Reconciler) upsert(ctx context.Context, evt *event.Event, now time.Time) outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.GetByTicketURL(ctx, evt.TicketURL)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.IncrCounter("reconcile.store_errors")
		logger.Error("event lookup failed, skipping record", logger.Fields{
			"ticket_url": evt.TicketURL,
		}, err)
		return outcomeSkipped
	}

	if existing == nil {
		evt.CreatedAt = now
		evt.UpdatedAt = now
		evt.ExpiresAt = nil
		evt.ClickCount = 0
		if err := r.store.Insert(ctx, evt); err != nil {
			logger.IncrCounter("reconcile.store_errors")
			logger.Error("event insert failed, skipping record", logger.Fields{
				"ticket_url": evt.TicketURL,
				"title":      evt.Title,
			}, err)
			return outcomeSkipped
		}
		logger.Info("created event", logger.Fields{
			"source":     string(evt.Source),
			"title":      evt.Title,
			"ticket_url": evt.TicketURL,
		})
		return outcomeInserted
	}

	evt.UpdatedAt = now
	if err := r.store.Update(ctx, evt); err != nil {
		logger.IncrCounter("reconcile.store_errors")
		logger.Error("event update failed, skipping record", logger.Fields{
			"ticket_url": evt.TicketURL,
			"title":      evt.Title,
		}, err)
		return outcomeSkipped
	}
	logger.Info("updated event", logger.Fields{
		"source":     string(evt.Source),
		"title":      evt.Title,
		"ticket_url": evt.TicketURL,
		"changes":    changedFields(existing, evt),
	})
	return outcomeUpdated
}

// changedFields reports which headline fields a re-scrape moved, for
// observability of drifting source data.
func changedFields(previous, current *event.Event) []string {
	var changes []string
	if previous.Title != current.Title {
		changes = append(changes, "title")
	}
	if !previous.StartTime.Equal(current.StartTime) {
		changes = append(changes, "start_time")
	}
	if previous.Location != current.Location {
		changes = append(changes, "location")
	}
	return changes
}

// Sweep marks every stored event whose start time has passed and that is
// not yet expired. Runs once per cycle after all adapters have reconciled;
// idempotent across cycles.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired, err := r.store.MarkExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Info("marked expired events", logger.Fields{
			"count": expired,
		})
	}
	return expired, nil
}
