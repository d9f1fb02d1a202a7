// Package vin decodes and validates vehicle identification numbers.
package vin

import (
	"regexp"
	"strconv"
	"strings"
)

// Length is the length of a modern VIN
const Length = 17

// yearCodes lists the model-year alphabet starting at 1980. The cycle repeats every 30 years.
const yearCodes = "ABCDEFGHJKLMNPRSTVWXY123456789"

const (
	baseYear  = 1980
	cycle     = 30
	maxCycles = 3
)

// Charset is the VIN alphabet as a regexp class (no I, O or Q)
const Charset = `[A-HJ-NPR-Z0-9]`

var (
	validRe = regexp.MustCompile(`^` + Charset + `{17}$`)
	findRe  = regexp.MustCompile(Charset + `{17}`)
)

// Tier is the outcome of the permissive two-tier validation
type Tier int

const (
	TierInvalid Tier = iota
	TierPlausible
	TierConfirmed
)

func (t Tier) String() string {
	switch t {
	case TierConfirmed:
		return "confirmed"
	case TierPlausible:
		return "plausible"
	default:
		return "invalid"
	}
}

// Decoder maps the 10th VIN character to a model year, preferring years inside [Min, Max]
type Decoder struct {
	Min int
	Max int
}

// DefaultDecoder targets the first-generation Insight production run
var DefaultDecoder = Decoder{Min: 1999, Max: 2006}

// DecodeYear decodes with DefaultDecoder
func DecodeYear(v string) (string, bool) {
	return DefaultDecoder.DecodeYear(v)
}

// DecodeYear returns the model year encoded at position 10
func (d Decoder) DecodeYear(v string) (string, bool) {
	if len(v) < 10 {
		return "", false
	}
	idx := strings.IndexByte(yearCodes, upper(v[9]))
	if idx < 0 {
		return "", false
	}

	best := 0
	bestDist := -1
	for c := 0; c < maxCycles; c++ {
		year := baseYear + idx + c*cycle
		dist := d.distance(year)
		if bestDist < 0 || dist < bestDist || (dist == bestDist && year > best) {
			best, bestDist = year, dist
		}
	}
	return strconv.Itoa(best), true
}

func (d Decoder) distance(year int) int {
	switch {
	case d.Min != 0 && year < d.Min:
		return d.Min - year
	case d.Max != 0 && year > d.Max:
		return year - d.Max
	default:
		return 0
	}
}

// IsValid reports whether v is 17 characters over the VIN alphabet
func IsValid(v string) bool {
	return validRe.MatchString(strings.ToUpper(v))
}

// Validate classifies v. A VIN starting with one of the confirmed prefixes is TierConfirmed;
// any other well-formed VIN is TierPlausible.
func Validate(v string, confirmedPrefixes ...string) Tier {
	v = strings.ToUpper(v)
	if !validRe.MatchString(v) {
		return TierInvalid
	}
	for _, p := range confirmedPrefixes {
		if p != "" && strings.HasPrefix(v, strings.ToUpper(p)) {
			return TierConfirmed
		}
	}
	return TierPlausible
}

// FindAll returns the distinct VIN-shaped substrings of text in first-seen order.
// A non-empty prefix restricts matches to VINs beginning with it.
func FindAll(text, prefix string) []string {
	re := findRe
	if prefix != "" {
		rest := Length - len(prefix)
		if rest <= 0 {
			return nil
		}
		re = regexp.MustCompile(regexp.QuoteMeta(strings.ToUpper(prefix)) + Charset + `{` + strconv.Itoa(rest) + `}`)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
