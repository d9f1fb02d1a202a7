package extraction

import (
	"html"
	"regexp"
	"strings"

	"github.com/williampepple1/salvage-yard-monitor/internal/clean"
)

// WindowRadius is the number of bytes kept on each side of an identifier
const WindowRadius = 1000

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	partialTagRe = regexp.MustCompile(`^[^<]*>|<[^>]*$`)
	wsRe         = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// Window returns the text within radius bytes of the first occurrence of needle
func Window(text, needle string, radius int) (string, bool) {
	if needle == "" {
		return "", false
	}
	idx := strings.Index(text, needle)
	if idx < 0 {
		return "", false
	}
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + radius
	if end > len(text) {
		end = len(text)
	}
	return text[start:end], true
}

// StripTags turns an HTML fragment into whitespace-separated text. A tag cut in
// half at either edge of the fragment is dropped.
func StripTags(fragment string) string {
	s := partialTagRe.ReplaceAllString(fragment, " ")
	s = tagRe.ReplaceAllString(s, "\n")
	s = html.UnescapeString(s)
	return wsRe.ReplaceAllString(s, " ")
}

// SiteRules are one adapter's extraction tables. The shared base tables are
// appended after them by NewExtractor.
type SiteRules struct {
	Location Rules
	Yard     Rules
	Date     Rules
	Price    Rules
	Contact  Rules
	Row      Rules

	DefaultLocation string
	DefaultYard     string

	// RepairTruncation expands truncated city fragments in location and yard
	RepairTruncation bool
}

// Fields are the auxiliary values found in a context window
type Fields struct {
	Location string
	Yard     string
	Row      string
	Date     string
	Price    string
	Contact  string
}

// Extractor runs a site's rule tables against context windows
type Extractor struct {
	location Rules
	yard     Rules
	date     Rules
	price    Rules
	contact  Rules
	row      Rules
	site     SiteRules
}

// NewExtractor creates a new data extractor
func NewExtractor(site SiteRules) *Extractor {
	return &Extractor{
		location: site.Location.Then(LocationRules),
		yard:     site.Yard.Then(),
		date:     site.Date.Then(DateRules),
		price:    site.Price.Then(PriceRules),
		contact:  site.Contact.Then(ContactRules),
		row:      site.Row.Then(RowRules),
		site:     site,
	}
}

// Fields extracts from a raw HTML window
func (e *Extractor) Fields(window string) Fields {
	text := StripTags(window)

	var f Fields
	f.Location = firstOr(e.location, text, e.site.DefaultLocation)
	f.Yard = firstOr(e.yard, text, e.site.DefaultYard)
	f.Row, _ = e.row.First(text)
	f.Date, _ = e.date.First(text)
	f.Price, _ = e.price.First(text)
	f.Contact, _ = e.contact.First(text)

	if e.site.RepairTruncation {
		f.Location = clean.ExpandTruncatedLocation(f.Location)
		f.Yard = clean.ExpandTruncatedLocation(f.Yard)
	}
	return f
}

func firstOr(rs Rules, text, fallback string) string {
	if v, ok := rs.First(text); ok {
		return v
	}
	return fallback
}
