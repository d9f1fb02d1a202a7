package extraction

import (
	"regexp"
	"strings"
)

// Rule is one pattern in an ordered first-match-wins table.
// Group selects the capture group to return. A non-empty Value replaces the match.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int
	Value   string
}

// Rules is evaluated in order; the first rule whose pattern matches wins
type Rules []Rule

// R compiles a rule returning capture group `group`
func R(name, pattern string, group int) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Group: group}
}

// Literal matches pattern and returns value unchanged
func Literal(value, pattern string) Rule {
	return Rule{Name: value, Pattern: regexp.MustCompile(pattern), Value: value}
}

// Match applies a single rule
func (r Rule) Match(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if r.Value != "" {
		return r.Value, true
	}
	if r.Group >= len(m) {
		return "", false
	}
	v := strings.TrimSpace(m[r.Group])
	return v, v != ""
}

// First returns the value of the first matching rule
func (rs Rules) First(text string) (string, bool) {
	for _, r := range rs {
		if v, ok := r.Match(text); ok {
			return v, true
		}
	}
	return "", false
}

// Then returns rs followed by more, without aliasing either slice
func (rs Rules) Then(more ...Rules) Rules {
	out := make(Rules, 0, len(rs))
	out = append(out, rs...)
	for _, m := range more {
		out = append(out, m...)
	}
	return out
}

const months = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`

// Base tables shared by every adapter. Site tables are evaluated before these.
var (
	LocationRules = Rules{
		R("city-state", `([A-Z][a-z]+,\s*[A-Z]{2})`, 1),
		R("city-state-nocomma", `([A-Z][a-z]+\s+[A-Z]{2})`, 1),
		R("state-zip", `([A-Z]{2}\s+\d{5})`, 1),
	}

	DateRules = Rules{
		R("month-day-year", months+`\s+\d{1,2},\s+\d{4}`, 0),
		R("us-slash", `\d{1,2}/\d{1,2}/\d{4}`, 0),
		R("iso", `\d{4}-\d{2}-\d{2}`, 0),
		R("us-dash", `\d{1,2}-\d{1,2}-\d{4}`, 0),
	}

	PriceRules = Rules{
		R("dollar-grouped", `\$\d+(?:,\d{3})*(?:\.\d{2})?`, 0),
		R("dollar", `\$\d+(?:\.\d{2})?`, 0),
		R("labelled", `Price:\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`, 1),
	}

	ContactRules = Rules{
		R("phone-paren", `(\(\d{3}\)\s*\d{3}-\d{4})`, 1),
		R("phone-dash", `(\d{3}-\d{3}-\d{4})`, 1),
		R("phone-dot", `(\d{3}\.\d{3}\.\d{4})`, 1),
		R("email", `([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`, 1),
	}

	RowRules = Rules{
		R("row", `Row\s*(\d+)`, 1),
	}
)

// YardPatterns builds the usual "<brand> - <branch>", "<brand>", "Yard: x" table for a yard brand.
// brand is a regexp fragment such as `Fenix\s+U\s+Pull`.
func YardPatterns(brand string) Rules {
	return Rules{
		R("brand-branch", `(?i)`+brand+`[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
		R("brand", `(?i)(`+brand+`)`, 1),
		R("yard-label", `(?i)Yard\s*:?\s*([A-Za-z0-9][A-Za-z0-9 ]*)`, 1),
	}
}

// LabelledLocation matches "Location: x" and "Address: x"
var LabelledLocation = Rules{
	R("location-label", `(?i)Location\s*:?\s*([A-Za-z][A-Za-z ,]*)`, 1),
	R("address-label", `(?i)Address\s*:?\s*([A-Za-z][A-Za-z ,]*)`, 1),
}
