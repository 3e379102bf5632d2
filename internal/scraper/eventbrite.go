package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/citypulse/city-events/internal/event"
)

const (
	eventbriteBaseURL  = "https://www.eventbrite.com.au"
	eventbriteMaxPages = 3
)

// Eventbrite scrapes the Eventbrite city search listing. The page is
// script-heavy, so extraction leans on the embedded JSON-LD event blocks
// with the rendered cards as a fallback.
type Eventbrite struct {
	fetcher *Fetcher
	city    string
}

// NewEventbrite creates the eventbrite adapter for the given city.
func NewEventbrite(f *Fetcher, city string) *Eventbrite {
	return &Eventbrite{fetcher: f, city: city}
}

func (s *Eventbrite) Source() event.Source { return event.SourceEventbrite }

// Collect walks the city search pages and extracts raw listings.
func (s *Eventbrite) Collect(ctx context.Context) ([]event.RawListing, int) {
	search := fmt.Sprintf("%s/d/australia--%s/events/", eventbriteBaseURL, s.city)
	return collectPages(ctx, s.fetcher, event.SourceEventbrite, eventbriteMaxPages,
		func(page int) string {
			if page == 1 {
				return search
			}
			return fmt.Sprintf("%s?page=%d", search, page)
		},
		s.parse,
	)
}

func (s *Eventbrite) parse(doc *goquery.Document) []event.RawListing {
	listings := parseJSONLD(doc, event.SourceEventbrite, eventbriteBaseURL)

	doc.Find(`div[class*="event-card"], article`).Each(func(_ int, card *goquery.Selection) {
		if l, ok := s.card(card); ok {
			listings = append(listings, l)
		}
	})

	return dedupeByURL(listings)
}

// card extracts one rendered event card. Cards without a link are skipped;
// missing optional fields stay empty.
func (s *Eventbrite) card(card *goquery.Selection) (event.RawListing, bool) {
	l := event.RawListing{
		Source:  event.SourceEventbrite,
		BaseURL: eventbriteBaseURL,
	}

	l.DetailURL = href(card)
	if l.DetailURL == "" {
		return l, false
	}

	l.Title = firstText(card, "h2", "h3", `a[class*="title"]`)
	l.DateText = dateText(card, `[class*="date"]`)
	l.Location = firstText(card, `[class*="location"]`, `[class*="venue"]`)
	if l.Location == "" {
		l.Location = defaultLocation(s.city)
	}
	l.Description = firstText(card, "p", `[class*="description"]`)
	l.ImageURL = imageSrc(card)

	return l, true
}

// defaultLocation is the fallback venue text when a card carries none; the
// search is already scoped to the configured city.
func defaultLocation(city string) string {
	if city == "" {
		return ""
	}
	return titleCase(city) + ", Australia"
}
