package event

import (
	"time"

	"github.com/uptrace/bun"
)

// Source identifies which external website a record was scraped from.
type Source string

const (
	SourceEventbrite Source = "eventbrite"
	SourceMeetup     Source = "meetup"
	SourceTimeout    Source = "timeout"
)

// Sources lists every known source tag in registration order.
func Sources() []Source {
	return []Source{SourceEventbrite, SourceMeetup, SourceTimeout}
}

// Event is the canonical, source-agnostic record stored in the catalog.
//
// TicketURL is the dedup key: always a fully-resolved absolute URL, unique
// across the table. ID and CreatedAt are immutable after first insert.
// ExpiresAt is set at most once by the expiry sweep and never cleared.
// ClickCount is owned by the read-side collaborator and never touched by
// ingestion.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	Title       string     `bun:"title,notnull" json:"title"`
	StartTime   time.Time  `bun:"start_time,notnull" json:"start_time"`
	Location    string     `bun:"location,notnull" json:"location"`
	Description string     `bun:"description,nullzero" json:"description,omitempty"`
	TicketURL   string     `bun:"ticket_url,notnull,unique" json:"ticket_url"`
	ImageURL    string     `bun:"image_url,nullzero" json:"image_url,omitempty"`
	Source      Source     `bun:"source,notnull" json:"source"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	ExpiresAt   *time.Time `bun:"expires_at" json:"expires_at,omitempty"`
	ClickCount  int64      `bun:"click_count,notnull,default:0" json:"click_count"`
}

// Expired reports whether the expiry sweep has marked this event.
func (e *Event) Expired() bool {
	return e.ExpiresAt != nil
}

// Email is the email-capture entity. It shares the catalog but is written
// exclusively by the external email-capture collaborator; ingestion only
// carries the schema.
type Email struct {
	bun.BaseModel `bun:"table:emails"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	EventID   int64     `bun:"event_id,notnull" json:"event_id"`
	OptIn     bool      `bun:"opt_in,notnull" json:"opt_in"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
