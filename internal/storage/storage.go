package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/citypulse/city-events/internal/event"
)

// ErrNotFound is returned by lookups when no row matches. A lookup miss is
// a normal branch for the reconciler (it means insert), not a fault.
var ErrNotFound = errors.New("event not found")

// Store is the durable catalog of events and captured emails.
type Store struct {
	db *bun.DB
}

// Open opens (creating if needed) the sqlite catalog at the given path.
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?cache=shared", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite allows a single writer; serialize at the pool level.
	sqldb.SetMaxOpenConns(1)

	return NewWithDB(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// NewWithDB wraps an existing bun handle. Used by tests to run against an
// in-memory database.
func NewWithDB(db *bun.DB) *Store {
	return &Store{db: db}
}

// Init creates the events and emails tables when absent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*event.Event)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	if _, err := s.db.NewCreateTable().
		Model((*event.Email)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("creating emails table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetByTicketURL looks up the event stored under the dedup key.
func (s *Store) GetByTicketURL(ctx context.Context, ticketURL string) (*event.Event, error) {
	var evt event.Event
	err := s.db.NewSelect().
		Model(&evt).
		Where("ticket_url = ?", ticketURL).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

// Insert stores a new event. The unique constraint on ticket_url surfaces
// as an error here; the caller decides whether that aborts anything.
func (s *Store) Insert(ctx context.Context, evt *event.Event) error {
	_, err := s.db.NewInsert().Model(evt).Exec(ctx)
	return err
}

// Update refreshes the scraped fields of the row keyed by the event's
// ticket URL. The column list is explicit so id, created_at, click_count
// and expires_at can never be touched by a re-scrape.
func (s *Store) Update(ctx context.Context, evt *event.Event) error {
	_, err := s.db.NewUpdate().
		Model(evt).
		Column("title", "start_time", "location", "description", "image_url", "source", "updated_at").
		Where("ticket_url = ?", evt.TicketURL).
		Exec(ctx)
	return err
}

// MarkExpired sets expires_at=now on every event whose start time has
// passed and that has not been marked yet. Idempotent: already-marked rows
// never match again, so expires_at is set at most once.
func (s *Store) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*event.Event)(nil)).
		Set("expires_at = ?", now).
		Where("start_time < ?", now).
		Where("expires_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Filter narrows a List call. Zero values mean "no constraint"; expired
// rows are excluded unless IncludeExpired is set.
type Filter struct {
	Search         string
	From           time.Time
	To             time.Time
	Source         event.Source
	IncludeExpired bool
	Page           int
	PageSize       int
}

const defaultPageSize = 20

// List returns a page of events ordered by start time plus the total match
// count. This is the read-side collaborator's query surface.
func (s *Store) List(ctx context.Context, f Filter) ([]event.Event, int, error) {
	var events []event.Event

	q := s.db.NewSelect().Model(&events)

	if !f.IncludeExpired {
		q = q.Where("expires_at IS NULL")
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(lower(title) LIKE ? OR lower(description) LIKE ? OR lower(location) LIKE ?)",
			pattern, pattern, pattern)
	}
	if !f.From.IsZero() {
		q = q.Where("start_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("start_time <= ?", f.To)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	total, err := q.Order("start_time ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// IncrementClicks bumps the click counter on a detail view. This is the
// only event mutation the read side owns.
func (s *Store) IncrementClicks(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().
		Model((*event.Event)(nil)).
		Set("click_count = click_count + 1").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEmail stores an email capture referencing an existing event. Owned
// by the email-capture collaborator; ingestion never calls it.
func (s *Store) InsertEmail(ctx context.Context, em *event.Email) error {
	if em.CreatedAt.IsZero() {
		em.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(em).Exec(ctx)
	return err
}
