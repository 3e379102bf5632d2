package event

// RawListing is an unvalidated, source-specific record as extracted from a
// page. It lives only between an adapter's Collect call and normalization;
// raw listings are never persisted.
type RawListing struct {
	Source      Source
	Title       string
	DateText    string
	Location    string
	DetailURL   string // absolute or relative ticket/detail link
	ImageURL    string // optional
	Description string // optional
	BaseURL     string // adapter base URL, used to resolve relative links
}
