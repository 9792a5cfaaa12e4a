package places

import (
	"strings"
	"unicode/utf8"

	"market_intel/internal/domain"
)

// PriceFromLevel maps a 1..4 provider level onto the shared brackets.
// Unknown or missing levels (0, negative) default to "$".
func PriceFromLevel(level int) domain.PriceRange {
	switch {
	case level < 1:
		return domain.Price1
	case level > 4:
		return domain.Price4
	default:
		return domain.PriceRanges[level-1]
	}
}

// ParsePrice reads a symbol price such as "$$" or "€€€". Yelp returns the
// local currency symbol, so any run of one repeated rune counts.
func ParsePrice(s string) domain.PriceRange {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 || n > 4 {
		return domain.Price1
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return domain.Price1
		}
	}
	return PriceFromLevel(n)
}

// weekdays are Monday-first, as Yelp numbers them from 0.
var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func dayName(mondayZero int) string {
	if mondayZero < 0 || mondayZero >= len(weekdays) {
		return ""
	}
	return weekdays[mondayZero]
}

// clock turns "0930" into "09:30"; anything else passes through.
func clock(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if len(s) == 4 && isDigits(s) {
		return s[:2] + ":" + s[2:]
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

func clampRating(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 5:
		return 5
	}
	return r
}

func nonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
