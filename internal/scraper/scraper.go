package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/citypulse/city-events/internal/event"
	"github.com/citypulse/city-events/internal/gate"
	"github.com/citypulse/city-events/internal/logger"
)

const (
	UserAgent      = "city-events-bot/1.0 (github.com/citypulse/city-events)"
	DefaultTimeout = 30 * time.Second
)

// ErrDisallowed is returned by the Fetcher when the host's crawling policy
// forbids the requested path. It is not a failure: the request is simply
// never made.
var ErrDisallowed = errors.New("crawling policy disallows path")

// Adapter is the capability each source site implements. Collect fetches
// and extracts raw listings for one cycle. It never returns an error:
// fetch and parse failures are logged and whatever was extracted before
// the failure is returned, with errs counting the contained failures for
// the cycle summary.
type Adapter interface {
	Source() event.Source
	Collect(ctx context.Context) (listings []event.RawListing, errs int)
}

// ForSources builds the adapters for the enabled source tags, in the order
// given. Unknown tags are an error so misconfiguration fails at startup.
func ForSources(sources []event.Source, f *Fetcher, city string) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(sources))
	for _, src := range sources {
		switch src {
		case event.SourceEventbrite:
			adapters = append(adapters, NewEventbrite(f, city))
		case event.SourceMeetup:
			adapters = append(adapters, NewMeetup(f, city))
		case event.SourceTimeout:
			adapters = append(adapters, NewTimeout(f, city))
		default:
			return nil, fmt.Errorf("unknown source: %s", src)
		}
	}
	return adapters, nil
}

// Gate is the crawl-policy surface the fetcher consults before every
// request. Satisfied by *gate.Gate.
type Gate interface {
	Allowed(host, path string) bool
	Wait(ctx context.Context, host string)
}

var _ Gate = (*gate.Gate)(nil)

// Fetcher requests listing pages on behalf of adapters. Every request goes
// through the gate (policy check, then per-host delay) and carries the
// shared User-Agent and timeout.
type Fetcher struct {
	client *http.Client
	gate   Gate
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(g Gate, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		gate:   g,
	}
}

// Get fetches one page and parses it into a goquery document. Returns
// ErrDisallowed without making a request when the crawl policy forbids the
// path.
func (f *Fetcher) Get(ctx context.Context, rawurl string) (*goquery.Document, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	if !f.gate.Allowed(u.Host, u.RequestURI()) {
		return nil, ErrDisallowed
	}
	f.gate.Wait(ctx, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// collectPages walks listing pages 1..maxPages, stopping early on the
// first empty page, a fetch failure, a disallowed path, or context
// cancellation. Failures keep the listings gathered so far and are counted
// in errs; a disallowed path is not an error, the request is simply never
// made.
func collectPages(ctx context.Context, f *Fetcher, src event.Source, maxPages int, pageURL func(page int) string, parse func(*goquery.Document) []event.RawListing) ([]event.RawListing, int) {
	var all []event.RawListing
	errs := 0

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		target := pageURL(page)
		doc, err := f.Get(ctx, target)
		if err != nil {
			if errors.Is(err, ErrDisallowed) {
				logger.Debug("crawling policy disallows page, skipping", logger.Fields{
					"source": string(src),
					"url":    target,
				})
			} else {
				errs++
				logger.IncrCounter("ingest.fetch_errors")
				logger.Error("page fetch failed, keeping partial results", logger.Fields{
					"source": string(src),
					"url":    target,
					"page":   page,
				}, err)
			}
			break
		}

		listings := parse(doc)
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)
	}

	return dedupeByURL(all), errs
}

// dedupeByURL keeps the first listing per detail URL. Listing pages repeat
// events between the JSON-LD block and the rendered cards, and across
// pagination.
func dedupeByURL(listings []event.RawListing) []event.RawListing {
	seen := make(map[string]bool, len(listings))
	unique := make([]event.RawListing, 0, len(listings))
	for _, l := range listings {
		if seen[l.DetailURL] {
			continue
		}
		seen[l.DetailURL] = true
		unique = append(unique, l)
	}
	return unique
}

// firstText returns the trimmed text of the first element matching any of
// the selectors, tried in order.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// href returns the href of the first anchor in the selection.
func href(s *goquery.Selection) string {
	link, _ := s.Find("a[href]").First().Attr("href")
	return strings.TrimSpace(link)
}

// imageSrc returns the first usable image source in the selection,
// falling back to the common lazy-load attributes when src is absent.
func imageSrc(s *goquery.Selection) string {
	img := s.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// titleCase upper-cases the first byte, enough for the ASCII city slugs
// used in search URLs.
func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// dateText prefers a machine-readable datetime attribute over rendered
// text when the card carries a <time> element.
func dateText(s *goquery.Selection, fallbackSelectors ...string) string {
	if t := s.Find("time").First(); t.Length() > 0 {
		if v, ok := t.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if text := strings.TrimSpace(t.Text()); text != "" {
			return text
		}
	}
	return firstText(s, fallbackSelectors...)
}
