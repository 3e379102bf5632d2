package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/citypulse/city-events/internal/event"
)

const (
	timeoutBaseURL  = "https://www.timeout.com"
	timeoutMaxPages = 2
)

// Timeout scrapes the Time Out city events guide. The guide is
// server-rendered, so extraction works off the listing cards directly.
type Timeout struct {
	fetcher *Fetcher
	city    string
}

// NewTimeout creates the timeout adapter for the given city.
func NewTimeout(f *Fetcher, city string) *Timeout {
	return &Timeout{fetcher: f, city: city}
}

func (s *Timeout) Source() event.Source { return event.SourceTimeout }

// Collect walks the city guide pages and extracts raw listings.
func (s *Timeout) Collect(ctx context.Context) ([]event.RawListing, int) {
	search := fmt.Sprintf("%s/%s/events", timeoutBaseURL, s.city)
	return collectPages(ctx, s.fetcher, event.SourceTimeout, timeoutMaxPages,
		func(page int) string {
			if page == 1 {
				return search
			}
			return fmt.Sprintf("%s?page=%d", search, page)
		},
		s.parse,
	)
}

func (s *Timeout) parse(doc *goquery.Document) []event.RawListing {
	var listings []event.RawListing

	doc.Find(`article, div[class*="card"]`).Each(func(_ int, card *goquery.Selection) {
		if l, ok := s.card(card); ok {
			listings = append(listings, l)
		}
	})

	return dedupeByURL(listings)
}

// card extracts one listing card. Time Out marks venues up as <address> as
// often as a classed element, so both are tried.
func (s *Timeout) card(card *goquery.Selection) (event.RawListing, bool) {
	l := event.RawListing{
		Source:  event.SourceTimeout,
		BaseURL: timeoutBaseURL,
	}

	l.DetailURL = href(card)
	if l.DetailURL == "" {
		return l, false
	}

	l.Title = firstText(card, "h2", "h3", `a[class*="title"]`)
	l.DateText = dateText(card, `[class*="date"]`)
	l.Location = firstText(card, `[class*="location"]`, `[class*="venue"]`, "address")
	if l.Location == "" {
		l.Location = defaultLocation(s.city)
	}
	l.Description = firstText(card, "p", `[class*="summary"]`, `[class*="description"]`)
	l.ImageURL = imageSrc(card)

	return l, true
}
