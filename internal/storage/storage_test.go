package storage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/citypulse/city-events/internal/event"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	// Unique DSN per test so parallel packages don't share the shared-cache
	// memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	store := NewWithDB(bun.NewDB(sqldb, sqlitedialect.New()))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(ticketURL string, start time.Time) *event.Event {
	now := time.Now().UTC()
	return &event.Event{
		Title:     "Jazz Night",
		StartTime: start,
		Location:  "The Basement, Sydney",
		TicketURL: ticketURL,
		Source:    event.SourceEventbrite,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGetByTicketURL(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	evt := testEvent("https://example.com/e/1", time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, store.Insert(ctx, evt))
	assert.NotZero(t, evt.ID)

	got, err := store.GetByTicketURL(ctx, evt.TicketURL)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "Jazz Night", got.Title)
	assert.Nil(t, got.ExpiresAt)
	assert.Zero(t, got.ClickCount)

	_, err = store.GetByTicketURL(ctx, "https://example.com/e/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertDuplicateTicketURLFails(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, store.Insert(ctx, testEvent("https://example.com/e/1", start)))

	err := store.Insert(ctx, testEvent("https://example.com/e/1", start))
	assert.Error(t, err, "ticket_url must be unique")
}

func TestUpdateRefreshesOnlyScrapedFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	evt := testEvent("https://example.com/e/1", time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, store.Insert(ctx, evt))
	require.NoError(t, store.IncrementClicks(ctx, evt.ID))

	changed := *evt
	changed.Title = "Jazz Night (Rescheduled)"
	changed.StartTime = evt.StartTime.Add(48 * time.Hour)
	changed.Location = "Enmore Theatre"
	changed.UpdatedAt = time.Now().UTC().Add(time.Hour)
	changed.ClickCount = 99 // must not be written
	require.NoError(t, store.Update(ctx, &changed))

	got, err := store.GetByTicketURL(ctx, evt.TicketURL)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night (Rescheduled)", got.Title)
	assert.Equal(t, "Enmore Theatre", got.Location)
	assert.Equal(t, evt.ID, got.ID, "identity survives a re-scrape")
	assert.Equal(t, evt.CreatedAt.Unix(), got.CreatedAt.Unix(), "created_at survives a re-scrape")
	assert.Equal(t, int64(1), got.ClickCount, "click_count is not ingestion's to write")
}

func TestMarkExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := testEvent("https://example.com/e/past", now.Add(-2*time.Hour))
	future := testEvent("https://example.com/e/future", now.Add(2*time.Hour))
	require.NoError(t, store.Insert(ctx, past))
	require.NoError(t, store.Insert(ctx, future))

	marked, err := store.MarkExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	got, err := store.GetByTicketURL(ctx, past.TicketURL)
	require.NoError(t, err)
	require.True(t, got.Expired())
	firstMark := *got.ExpiresAt

	got, err = store.GetByTicketURL(ctx, future.TicketURL)
	require.NoError(t, err)
	assert.False(t, got.Expired())

	// A later sweep must not touch already-marked rows.
	marked, err = store.MarkExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, marked)

	got, err = store.GetByTicketURL(ctx, past.TicketURL)
	require.NoError(t, err)
	assert.Equal(t, firstMark.Unix(), got.ExpiresAt.Unix(), "expires_at is set at most once")
}

func TestListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	jazz := testEvent("https://example.com/e/jazz", now.Add(24*time.Hour))
	jazz.Title = "Jazz Night"

	markets := testEvent("https://example.com/e/markets", now.Add(48*time.Hour))
	markets.Title = "Night Noodle Markets"
	markets.Source = event.SourceTimeout

	expired := testEvent("https://example.com/e/expired", now.Add(-24*time.Hour))
	expired.Title = "Yesterday's Gig"

	for _, evt := range []*event.Event{jazz, markets, expired} {
		require.NoError(t, store.Insert(ctx, evt))
	}
	_, err := store.MarkExpired(ctx, now)
	require.NoError(t, err)

	// Default: expired rows excluded, ordered by start time.
	events, total, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Jazz Night", events[0].Title)
	assert.Equal(t, "Night Noodle Markets", events[1].Title)

	events, total, err = store.List(ctx, Filter{IncludeExpired: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	// Case-insensitive search over title/description/location.
	events, _, err = store.List(ctx, Filter{Search: "noodle"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Night Noodle Markets", events[0].Title)

	events, _, err = store.List(ctx, Filter{Source: event.SourceTimeout})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Night Noodle Markets", events[0].Title)

	events, _, err = store.List(ctx, Filter{From: now.Add(36 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Night Noodle Markets", events[0].Title)

	events, _, err = store.List(ctx, Filter{To: now.Add(36 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Jazz Night", events[0].Title)
}

func TestListPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		evt := testEvent(fmt.Sprintf("https://example.com/e/%d", i), now.Add(time.Duration(i+1)*time.Hour))
		evt.Title = fmt.Sprintf("Event %d", i)
		require.NoError(t, store.Insert(ctx, evt))
	}

	events, total, err := store.List(ctx, Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Event 0", events[0].Title)

	events, total, err = store.List(ctx, Filter{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, events, 1)
	assert.Equal(t, "Event 4", events[0].Title)
}

func TestIncrementClicks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	evt := testEvent("https://example.com/e/1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, store.Insert(ctx, evt))

	require.NoError(t, store.IncrementClicks(ctx, evt.ID))
	require.NoError(t, store.IncrementClicks(ctx, evt.ID))

	got, err := store.GetByTicketURL(ctx, evt.TicketURL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)

	assert.ErrorIs(t, store.IncrementClicks(ctx, 9999), ErrNotFound)
}

func TestInsertEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	evt := testEvent("https://example.com/e/1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, store.Insert(ctx, evt))

	em := &event.Email{Email: "fan@example.com", EventID: evt.ID, OptIn: true}
	require.NoError(t, store.InsertEmail(ctx, em))
	assert.NotZero(t, em.ID)
	assert.False(t, em.CreatedAt.IsZero())

	dup := &event.Email{Email: "fan@example.com", EventID: evt.ID}
	assert.Error(t, store.InsertEmail(ctx, dup), "email must be unique")
}
