package scraper

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citypulse/city-events/internal/event"
)

// ldText is a JSON-LD value that may arrive as a string, an array of
// strings, or an object. The first usable string wins; anything else
// decodes to empty rather than failing the whole block.
type ldText string

func (t *ldText) UnmarshalJSON(data []byte) error {
	var s string
	if json.Unmarshal(data, &s) == nil {
		*t = ldText(s)
		return nil
	}
	var arr []string
	if json.Unmarshal(data, &arr) == nil && len(arr) > 0 {
		*t = ldText(arr[0])
		return nil
	}
	var obj map[string]interface{}
	if json.Unmarshal(data, &obj) == nil {
		for _, key := range []string{"name", "url", "streetAddress", "addressLocality"} {
			if v, ok := obj[key].(string); ok && v != "" {
				*t = ldText(v)
				return nil
			}
		}
	}
	*t = ""
	return nil
}

// ldNode is the subset of a JSON-LD entity the adapters care about. Listing
// pages embed either a single Event, an array of Events, or an ItemList
// wrapping them.
type ldNode struct {
	Type            string  `json:"@type"`
	Name            string  `json:"name"`
	StartDate       string  `json:"startDate"`
	URL             string  `json:"url"`
	Image           ldText  `json:"image"`
	Description     string  `json:"description"`
	Location        ldText  `json:"location"`
	ItemListElement []struct {
		Item *ldNode `json:"item"`
	} `json:"itemListElement"`
}

// parseJSONLD extracts event entities from every ld+json script block in
// the document. Script-heavy sites render their listing data here even when
// the visible cards are built client-side.
func parseJSONLD(doc *goquery.Document, src event.Source, baseURL string) []event.RawListing {
	var listings []event.RawListing
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		for _, node := range decodeLDNodes([]byte(s.Text())) {
			if l, ok := ldListing(node, src, baseURL); ok {
				listings = append(listings, l)
			}
		}
	})
	return listings
}

// decodeLDNodes flattens a ld+json payload into candidate entities,
// unwrapping arrays and ItemList containers. Malformed JSON yields nothing.
func decodeLDNodes(data []byte) []*ldNode {
	var nodes []*ldNode

	var single ldNode
	if err := json.Unmarshal(data, &single); err == nil {
		nodes = append(nodes, &single)
	} else {
		var many []*ldNode
		if err := json.Unmarshal(data, &many); err != nil {
			return nil
		}
		nodes = append(nodes, many...)
	}

	var flat []*ldNode
	for _, n := range nodes {
		if n == nil {
			continue
		}
		flat = append(flat, n)
		for _, el := range n.ItemListElement {
			if el.Item != nil {
				flat = append(flat, el.Item)
			}
		}
	}
	return flat
}

// ldListing converts an Event-typed node into a raw listing. Non-event
// nodes (Organization, BreadcrumbList, the ItemList wrapper itself) are
// skipped.
func ldListing(n *ldNode, src event.Source, baseURL string) (event.RawListing, bool) {
	if !strings.Contains(n.Type, "Event") || n.URL == "" {
		return event.RawListing{}, false
	}
	return event.RawListing{
		Source:      src,
		Title:       n.Name,
		DateText:    n.StartDate,
		Location:    string(n.Location),
		DetailURL:   n.URL,
		ImageURL:    string(n.Image),
		Description: n.Description,
		BaseURL:     baseURL,
	}, true
}
