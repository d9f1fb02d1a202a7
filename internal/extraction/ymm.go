package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMakes is the vocabulary used to split concatenated year/make/model strings
var DefaultMakes = []string{
	"HONDA", "TOYOTA", "FORD", "CHEVROLET", "CHEVY", "NISSAN", "LEXUS",
	"BMW", "MERCEDES", "AUDI", "VOLKSWAGEN", "VW", "HYUNDAI", "KIA",
	"SUBARU", "MAZDA", "MITSUBISHI", "ACURA", "INFINITI", "CADILLAC",
	"BUICK", "GMC", "DODGE", "CHRYSLER", "JEEP", "RAM",
}

// maxModelLen caps the model text taken from a split
const maxModelLen = 20

var makeModelRe = regexp.MustCompile(`^([A-Z]+)([A-Z0-9]+)$`)

// SplitTier records which strategy split a YMM string
type SplitTier int

const (
	SplitFailed SplitTier = iota
	SplitVocabulary
	SplitRegex
	// SplitMidpoint is a last resort and routinely wrong for unlisted makes
	SplitMidpoint
)

// YMM is a decoded year/make/model string
type YMM struct {
	Year  string
	Make  string
	Model string
	Tier  SplitTier
}

// SplitYMM decodes strings like "2002HONDAINSIGHT": four leading digits, then a make from
// vocabulary, falling back to a letter/digit regex split and finally a midpoint split.
func SplitYMM(text string, vocabulary []string) (YMM, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 5 || !isDigits(text[:4]) {
		return YMM{}, false
	}
	out := YMM{Year: text[:4]}
	rest := text[4:]
	upper := strings.ToUpper(rest)

	switch {
	case matchMake(upper, vocabulary, &out):
		out.Tier = SplitVocabulary
		out.Model = rest[len(out.Make):]
	case makeModelRe.MatchString(rest):
		m := makeModelRe.FindStringSubmatch(rest)
		out.Make, out.Model, out.Tier = m[1], m[2], SplitRegex
	default:
		mid := len(rest) / 2
		out.Make, out.Model, out.Tier = rest[:mid], rest[mid:], SplitMidpoint
	}

	if len(out.Model) > maxModelLen {
		out.Model = out.Model[:maxModelLen]
	}
	return out, true
}

func matchMake(upper string, vocabulary []string, out *YMM) bool {
	for _, mk := range vocabulary {
		if strings.HasPrefix(upper, mk) {
			out.Make = mk
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
