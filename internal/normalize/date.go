package normalize

import (
	"strings"
	"time"

	"github.com/citypulse/city-events/internal/event"
)

// layout pairs a time.Parse reference layout with whether it carries a year.
// Year-less layouts get the year resolved against the current time.
type layout struct {
	format string
	noYear bool
}

// sharedLayouts are tried for every source after the source-specific ones.
// Ordering matters: more specific layouts first so e.g. "02/01/2006" does
// not shadow ISO dates.
var sharedLayouts = []layout{
	{format: time.RFC3339},
	{format: "2006-01-02T15:04:05"},
	{format: "2006-01-02 15:04"},
	{format: "2006-01-02"},
	{format: "2 Jan 2006 15:04"},
	{format: "2 Jan 2006"},
	{format: "02/01/2006"},
	{format: "January 2, 2006"},
}

// sourceLayouts hold the date shapes each site renders in its listing
// cards, in the order they are worth trying.
var sourceLayouts = map[event.Source][]layout{
	event.SourceEventbrite: {
		{format: "Mon, Jan 2, 3:04 PM", noYear: true},
		{format: "Mon, Jan 2 2006, 3:04 PM"},
		{format: "Mon, Jan 2", noYear: true},
		{format: "Jan 2, 2006"},
	},
	event.SourceMeetup: {
		{format: "Mon, Jan 2, 2006, 3:04 PM MST"},
		{format: "Mon, Jan 2, 2006, 3:04 PM"},
		{format: "Mon, Jan 2 · 3:04 PM", noYear: true},
	},
	event.SourceTimeout: {
		{format: "Monday 2 January 2006"},
		{format: "Mon 2 Jan 2006"},
		{format: "Mon 2 Jan", noYear: true},
	},
}

// ParseStartTime parses raw date text into a timestamp using the format
// rules for the given source. Listing cards often append price or venue
// segments after a separator, so each "·"/"|" delimited prefix is tried as
// well. Returns ok=false when nothing matches.
func ParseStartTime(src event.Source, text string, now time.Time) (time.Time, bool) {
	text = Whitespace(text)
	if text == "" {
		return time.Time{}, false
	}

	layouts := append(append([]layout{}, sourceLayouts[src]...), sharedLayouts...)

	for _, candidate := range candidates(text) {
		for _, l := range layouts {
			t, err := time.Parse(l.format, candidate)
			if err != nil {
				continue
			}
			if l.noYear {
				t = withNearestYear(t, now)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// candidates returns the raw text plus each prefix obtained by cutting at
// a separator, e.g. "Sat, Aug 30, 7:00 PM · Enmore Theatre" also yields
// "Sat, Aug 30, 7:00 PM".
func candidates(text string) []string {
	out := []string{text}
	for _, sep := range []string{"·", "|"} {
		if prefix, _, found := strings.Cut(text, sep); found {
			if prefix = strings.TrimSpace(prefix); prefix != "" {
				out = append(out, prefix)
			}
		}
	}
	return out
}

// withNearestYear resolves a year-less parse result to the current year,
// rolling over to the next year when the date is already more than six
// months in the past (sites drop the year only for dates near "now").
func withNearestYear(t, now time.Time) time.Time {
	resolved := time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if resolved.Before(now.AddDate(0, -6, 0)) {
		resolved = resolved.AddDate(1, 0, 0)
	}
	return resolved
}
