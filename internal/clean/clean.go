// Package clean normalises scraped vehicle fields after aggregation.
//
// Every cleaner is idempotent: feeding its output back in returns the same value.
// Cleaners never discard a record, they only blank the fields they cannot repair.
package clean

import (
	"regexp"
	"strings"

	"github.com/williampepple1/salvage-yard-monitor/internal/vin"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// Truncations maps fragments cut short by upstream column widths to full names
var Truncations = map[string]string{
	"Arlingto": "Arlington",
	"Vancouve": "Vancouver",
	"Fairfiel": "Fairfield",
	"Rancho C": "Rancho Cordova",
	"Sacram":   "Sacramento",
	"Portlan":  "Portland",
	"Seattl":   "Seattle",
}

var (
	spaceRe        = regexp.MustCompile(`\s+`)
	unitSuffixRe   = regexp.MustCompile(`(?i)(\d)\s*(?:kgs?|lbs?|hrs?|hours?|mins?|days?)\b`)
	unitTokenRe    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kgs?|lbs?|hrs?|hours?|mins?|days?)\b`)
	bareLetterRe   = regexp.MustCompile(`(?:^|\s)[A-Za-z](?:\s|$)`)
	trailLetterRe  = regexp.MustCompile(`(?:\s+[A-Za-z])+$`)
	priceRe        = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`)
	barePriceRe    = regexp.MustCompile(`^(\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?$`)
	cityStateRe    = regexp.MustCompile(`[A-Z][a-z]+(?:\s[A-Z][a-z]+)*,\s*[A-Z]{2}\b`)
	digitsOnlyRe   = regexp.MustCompile(`^[\d\s.,\-]+$`)
	edgePunctChars = ",;:-|/"
)

// priceSentinels are recognised non-numeric prices, keyed by lower-case form
var priceSentinels = []struct {
	match string
	value string
}{
	{"call", "Call"},
	{"contact", "Contact"},
	{"n/a", "N/A"},
	{"inquire", "Inquire"},
}

func squash(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " "+edgePunctChars)
}

// Price cleans a free-text price. It returns false when nothing usable remains.
func Price(raw string) (string, bool) {
	s := squash(raw)
	if s == "" {
		return "", false
	}
	if v, ok := sentinel(s, true); ok {
		return v, true
	}

	s = unitSuffixRe.ReplaceAllString(s, "$1")
	for bareLetterRe.MatchString(s) {
		s = bareLetterRe.ReplaceAllString(s, " ")
	}
	s = squash(s)

	if m := priceRe.FindStringSubmatch(s); m != nil {
		return "$" + m[1], true
	}
	if barePriceRe.MatchString(s) {
		return "$" + s, true
	}
	return sentinel(s, false)
}

func sentinel(s string, exact bool) (string, bool) {
	lower := strings.ToLower(s)
	for _, p := range priceSentinels {
		if exact && lower == p.match {
			return p.value, true
		}
		if !exact && strings.Contains(lower, p.match) {
			return p.value, true
		}
	}
	return "", false
}

// ExpandTruncatedLocation repairs a known truncated fragment. Unknown input is returned unchanged.
func ExpandTruncatedLocation(s string) string {
	if full, ok := Truncations[s]; ok {
		return full
	}
	return s
}

func stripArtifacts(s string) string {
	s = unitTokenRe.ReplaceAllString(s, " ")
	s = trailLetterRe.ReplaceAllString(squash(s), "")
	return squash(s)
}

// Location cleans a location string.
func Location(raw string) (string, bool) {
	s := squash(raw)
	if full, ok := Truncations[s]; ok {
		return full, true
	}
	s = stripArtifacts(s)
	if s == "" || digitsOnlyRe.MatchString(s) {
		return "", false
	}
	if m := cityStateRe.FindString(s); m != "" && m != s {
		s = m
	}
	return ExpandTruncatedLocation(s), true
}

// Yard cleans a yard/facility name.
func Yard(raw string) (string, bool) {
	s := squash(raw)
	if full, ok := Truncations[s]; ok {
		return full, true
	}
	s = stripArtifacts(s)
	if s == "" || digitsOnlyRe.MatchString(s) {
		return "", false
	}
	return ExpandTruncatedLocation(s), true
}

// ID recovers a unique identifier, substituting models.VINNotFound when it cannot.
func ID(raw string) string {
	s := strings.TrimSpace(raw)
	if compact := strings.ToUpper(spaceRe.ReplaceAllString(s, "")); len(compact) == vin.Length && vin.IsValid(compact) {
		return compact
	}
	if strings.Trim(s, " "+edgePunctChars+"._") == "" {
		return models.VINNotFound
	}
	return s
}

func cleaned(p *string, fn func(string) (string, bool)) *string {
	if p == nil {
		return nil
	}
	if v, ok := fn(*p); ok {
		return &v
	}
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	return models.Str(squash(*p))
}

// Vehicle returns a cleaned copy of v
func Vehicle(v models.Vehicle) models.Vehicle {
	out := v
	out.UniqueID = ID(v.UniqueID)
	out.Price = cleaned(v.Price, Price)
	out.Yard = cleaned(v.Yard, Yard)
	out.Location = cleaned(v.Location, Location)
	out.Year = trimmed(v.Year)
	out.Make = trimmed(v.Make)
	out.Model = trimmed(v.Model)
	out.Row = trimmed(v.Row)
	out.DateAdded = trimmed(v.DateAdded)
	out.ContactInfo = trimmed(v.ContactInfo)
	out.StockNumber = trimmed(v.StockNumber)
	out.SourceURL = strings.TrimSpace(v.SourceURL)
	return out
}

// Vehicles cleans every record
func Vehicles(vs []models.Vehicle) []models.Vehicle {
	out := make([]models.Vehicle, len(vs))
	for i, v := range vs {
		out[i] = Vehicle(v)
	}
	return out
}

// Results returns a new ScanResult with every site cleaned and order preserved
func Results(r *models.ScanResult) *models.ScanResult {
	out := models.NewScanResult(r.Timestamp)
	for _, name := range r.SiteNames() {
		out.Set(name, Vehicles(r.Site(name)))
	}
	for name, rep := range r.Reports {
		out.Reports[name] = rep
	}
	return out
}

// DedupBy keeps the first record for each key. Records with an empty key are kept.
func DedupBy(vs []models.Vehicle, key func(models.Vehicle) string) []models.Vehicle {
	seen := make(map[string]struct{}, len(vs))
	out := make([]models.Vehicle, 0, len(vs))
	for _, v := range vs {
		k := key(v)
		if k != "" {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, v)
	}
	return out
}

// MultiPartFilter keeps keys observed more than once, one record each, in first-seen order.
// It counts records, so callers that want one vote per search group dedupe each group first.
func MultiPartFilter(vs []models.Vehicle, key func(models.Vehicle) string) []models.Vehicle {
	counts := make(map[string]int, len(vs))
	for _, v := range vs {
		if k := key(v); k != "" {
			counts[k]++
		}
	}

	var out []models.Vehicle
	emitted := make(map[string]struct{})
	for _, v := range vs {
		k := key(v)
		if counts[k] < 2 {
			continue
		}
		if _, ok := emitted[k]; ok {
			continue
		}
		emitted[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ByUniqueID is the default dedup key
func ByUniqueID(v models.Vehicle) string { return v.UniqueID }

// ByStockNumber keys on the yard's stock number
func ByStockNumber(v models.Vehicle) string { return models.Deref(v.StockNumber) }
