package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/citypulse/city-events/internal/event"
)

const (
	meetupBaseURL  = "https://www.meetup.com"
	meetupMaxPages = 2
)

// Meetup scrapes the meetup.com event search for the configured city.
// Like eventbrite the page is rendered client-side, so the JSON-LD blocks
// carry the listing data.
type Meetup struct {
	fetcher *Fetcher
	city    string
}

// NewMeetup creates the meetup adapter for the given city.
func NewMeetup(f *Fetcher, city string) *Meetup {
	return &Meetup{fetcher: f, city: city}
}

func (s *Meetup) Source() event.Source { return event.SourceMeetup }

// Collect walks the event search pages and extracts raw listings.
func (s *Meetup) Collect(ctx context.Context) ([]event.RawListing, int) {
	search := fmt.Sprintf("%s/find/events/?location=au--%s", meetupBaseURL, s.city)
	return collectPages(ctx, s.fetcher, event.SourceMeetup, meetupMaxPages,
		func(page int) string {
			if page == 1 {
				return search
			}
			return fmt.Sprintf("%s&page=%d", search, page)
		},
		s.parse,
	)
}

func (s *Meetup) parse(doc *goquery.Document) []event.RawListing {
	listings := parseJSONLD(doc, event.SourceMeetup, meetupBaseURL)

	doc.Find(`a[href*="/events/"]`).Each(func(_ int, card *goquery.Selection) {
		if l, ok := s.card(card); ok {
			listings = append(listings, l)
		}
	})

	return dedupeByURL(listings)
}

// card extracts one rendered search result. Meetup wraps each result in the
// event link itself, so the anchor is the card.
func (s *Meetup) card(card *goquery.Selection) (event.RawListing, bool) {
	link, _ := card.Attr("href")
	if link == "" {
		return event.RawListing{}, false
	}

	l := event.RawListing{
		Source:    event.SourceMeetup,
		BaseURL:   meetupBaseURL,
		DetailURL: link,
	}

	l.Title = firstText(card, "h2", "h3", `[class*="title"]`)
	if l.Title == "" {
		return l, false
	}
	l.DateText = dateText(card, `[class*="date"]`)
	l.Location = firstText(card, `[class*="location"]`, `[class*="venue"]`)
	if l.Location == "" {
		l.Location = defaultLocation(s.city)
	}
	l.Description = firstText(card, "p")
	l.ImageURL = imageSrc(card)

	return l, true
}
