package app

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"market_intel/internal/domain"
)

// marketStats is everything the score and the recommendation rules read.
type marketStats struct {
	competitors   int
	avgRating     float64
	saturation    domain.Saturation
	priceGaps     []domain.PriceRange
	topCuisine    string
	topCuisineCnt int
}

// Summarize builds the scored part of a MarketAnalysis (everything except
// the location) from a list of nearby restaurants.
func Summarize(rs []domain.Restaurant, radius int, p domain.Policy) domain.MarketAnalysis {
	prices := PriceDistribution(rs)
	cuisines := CuisineDistribution(rs)

	st := marketStats{
		competitors: len(rs),
		avgRating:   AverageRating(rs),
		saturation:  Saturation(len(rs), radius, p),
		priceGaps:   PriceGaps(prices, p),
	}
	st.topCuisine, st.topCuisineCnt = topKey(cuisines)

	return domain.MarketAnalysis{
		Radius:              radius,
		CompetitorCount:     st.competitors,
		AverageRating:       st.avgRating,
		PriceDistribution:   prices,
		CuisineDistribution: cuisines,
		MarketSaturation:    st.saturation,
		OpportunityScore:    opportunityScore(st, p),
		Recommendations:     recommend(st, p),
	}
}

// AverageRating is the arithmetic mean, 0 for an empty set.
func AverageRating(rs []domain.Restaurant) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Rating
	}
	return sum / float64(len(rs))
}

func PriceDistribution(rs []domain.Restaurant) map[string]int {
	out := make(map[string]int)
	for _, r := range rs {
		out[string(r.PriceRange)]++
	}
	return out
}

// CuisineDistribution counts every cuisine tag, so a restaurant with N
// cuisines increments N buckets.
func CuisineDistribution(rs []domain.Restaurant) map[string]int {
	out := make(map[string]int)
	for _, r := range rs {
		for _, c := range r.Cuisine {
			out[c]++
		}
	}
	return out
}

// Density is restaurants per km² inside the search circle.
func Density(count, radiusMeters int) float64 {
	km := float64(radiusMeters) / 1000
	area := math.Pi * km * km
	if area <= 0 {
		return math.Inf(1)
	}
	return float64(count) / area
}

func Saturation(count, radiusMeters int, p domain.Policy) domain.Saturation {
	d := Density(count, radiusMeters)
	switch {
	case d < p.LowDensity:
		return domain.SaturationLow
	case d < p.HighDensity:
		return domain.SaturationMedium
	default:
		return domain.SaturationHigh
	}
}

// PriceGaps lists brackets whose share of all priced restaurants is below
// the policy threshold. An empty distribution has no gaps.
func PriceGaps(dist map[string]int, p domain.Policy) []domain.PriceRange {
	total := 0
	for _, n := range dist {
		total += n
	}
	if total == 0 {
		return nil
	}
	var gaps []domain.PriceRange
	for _, pr := range domain.PriceRanges {
		if float64(dist[string(pr)])/float64(total) < p.PriceGapShare {
			gaps = append(gaps, pr)
		}
	}
	return gaps
}

// OpportunityScore scores a restaurant set in [0,100].
func OpportunityScore(rs []domain.Restaurant, radius int, p domain.Policy) int {
	return Summarize(rs, radius, p).OpportunityScore
}

func opportunityScore(st marketStats, p domain.Policy) int {
	score := p.BaseScore

	switch st.saturation {
	case domain.SaturationLow:
		score += p.LowSaturationBonus
	case domain.SaturationHigh:
		score -= p.HighSaturationCost
	}

	// ratings say nothing when there is nobody to rate
	if st.competitors > 0 {
		switch {
		case st.avgRating < p.LowRatingThreshold:
			score += p.LowRatingBonus
		case st.avgRating > p.HighRatingThreshold:
			score -= p.HighRatingCost
		}
	}

	score += len(st.priceGaps) * p.PriceGapBonus

	return max(0, min(100, score))
}

// recommendation is one row of the rule table.
type recommendation struct {
	when func(st marketStats, p domain.Policy) bool
	say  func(st marketStats, p domain.Policy) string
}

func fixed(msg string) func(marketStats, domain.Policy) string {
	return func(marketStats, domain.Policy) string { return msg }
}

// rules are evaluated in order; every matching rule contributes one line.
var rules = []recommendation{
	{
		when: func(st marketStats, _ domain.Policy) bool { return st.competitors == 0 },
		say:  fixed("No competitors found nearby - validate demand before entering"),
	},
	{
		when: func(st marketStats, _ domain.Policy) bool { return st.saturation == domain.SaturationLow },
		say:  fixed("Low competition area - great opportunity for new restaurant"),
	},
	{
		when: func(st marketStats, _ domain.Policy) bool { return st.saturation == domain.SaturationMedium },
		say:  fixed("Moderate competition - a clear concept and a strong location will matter"),
	},
	{
		when: func(st marketStats, _ domain.Policy) bool { return st.saturation == domain.SaturationHigh },
		say:  fixed("Highly saturated market - differentiate with a distinct concept or niche"),
	},
	{
		when: func(st marketStats, p domain.Policy) bool {
			return st.competitors > 0 && st.avgRating < p.LowRatingThreshold
		},
		say: fixed("Below-average ratings in area - focus on quality to stand out"),
	},
	{
		when: func(st marketStats, p domain.Policy) bool {
			return st.competitors > 0 && st.avgRating > p.HighRatingThreshold
		},
		say: fixed("Competitors are highly rated - expect a high bar for food and service"),
	},
	{
		when: func(st marketStats, _ domain.Policy) bool { return len(st.priceGaps) > 0 },
		say: func(st marketStats, _ domain.Policy) string {
			labels := make([]string, 0, len(st.priceGaps))
			for _, g := range st.priceGaps {
				labels = append(labels, string(g))
			}
			return fmt.Sprintf("Underserved price points (%s) - consider positioning there", strings.Join(labels, ", "))
		},
	},
	{
		when: func(st marketStats, p domain.Policy) bool {
			return st.competitors > 0 && float64(st.topCuisineCnt)/float64(st.competitors) >= p.DominantCuisine
		},
		say: func(st marketStats, _ domain.Policy) string {
			pct := int(math.Round(100 * float64(st.topCuisineCnt) / float64(st.competitors)))
			return fmt.Sprintf("%s is heavily represented (%d%% of competitors) - consider an underserved cuisine", st.topCuisine, pct)
		},
	},
}

func recommend(st marketStats, p domain.Policy) []string {
	out := make([]string, 0, 4)
	for _, r := range rules {
		if r.when(st, p) {
			out = append(out, r.say(st, p))
		}
	}
	return out
}

// topKey returns the highest count, ties broken alphabetically.
func topKey(m map[string]int) (string, int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, n := "", 0
	for _, k := range keys {
		if m[k] > n {
			best, n = k, m[k]
		}
	}
	return best, n
}
