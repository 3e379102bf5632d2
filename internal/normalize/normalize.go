package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/citypulse/city-events/internal/event"
	"github.com/citypulse/city-events/internal/logger"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Whitespace trims the string and collapses internal runs of whitespace
// (including newlines from multi-line card markup) to single spaces.
func Whitespace(s string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Normalize maps a raw listing to a canonical Event. Returns ok=false when
// the listing is missing a title, a resolvable ticket URL, or a parseable
// start time; such listings are dropped with a logged warning, never an
// error. Identity and bookkeeping fields (ID, CreatedAt, UpdatedAt,
// ExpiresAt, ClickCount) are left for the reconciler to assign.
func Normalize(raw event.RawListing, now time.Time) (*event.Event, bool) {
	title := Whitespace(raw.Title)
	if title == "" {
		logger.Warn("dropping listing without title", logger.Fields{
			"source": string(raw.Source),
			"url":    raw.DetailURL,
		})
		return nil, false
	}

	ticketURL, ok := resolveURL(raw.BaseURL, raw.DetailURL)
	if !ok {
		logger.Warn("dropping listing without resolvable ticket URL", logger.Fields{
			"source": string(raw.Source),
			"title":  title,
			"url":    raw.DetailURL,
		})
		return nil, false
	}

	start, ok := ParseStartTime(raw.Source, raw.DateText, now)
	if !ok {
		logger.Warn("dropping listing with unparseable date", logger.Fields{
			"source":    string(raw.Source),
			"title":     title,
			"date_text": raw.DateText,
		})
		return nil, false
	}

	// Optional image: keep only when it resolves to an absolute URL.
	imageURL := ""
	if raw.ImageURL != "" {
		imageURL, _ = resolveURL(raw.BaseURL, raw.ImageURL)
	}

	return &event.Event{
		Title:       title,
		StartTime:   start,
		Location:    Whitespace(raw.Location),
		Description: Whitespace(raw.Description),
		TicketURL:   ticketURL,
		ImageURL:    imageURL,
		Source:      raw.Source,
	}, true
}

// resolveURL resolves ref against base and returns the absolute form.
// Only http(s) results are accepted.
func resolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !refURL.IsAbs() {
		baseURL, err := url.Parse(base)
		if err != nil || !baseURL.IsAbs() {
			return "", false
		}
		refURL = baseURL.ResolveReference(refURL)
	}
	if refURL.Scheme != "http" && refURL.Scheme != "https" {
		return "", false
	}
	return refURL.String(), true
}
