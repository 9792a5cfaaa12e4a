package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"market_intel/internal/adapters/observability"
	"market_intel/internal/domain"
)

type MarketAnalyzer struct {
	search domain.Searcher
	geo    domain.Geocoder
	policy domain.Policy
}

// NewMarketAnalyzer wires the analyzer; geo may be nil, in which case the
// address is always the literal coordinates.
func NewMarketAnalyzer(s domain.Searcher, geo domain.Geocoder, p domain.Policy) *MarketAnalyzer {
	return &MarketAnalyzer{search: s, geo: geo, policy: p}
}

func (m *MarketAnalyzer) Policy() domain.Policy { return m.policy }

// Analyze builds a fresh MarketAnalysis for the circle around (lat, lon).
// Only an exhausted search or a cancelled context is returned as an error.
func (m *MarketAnalyzer) Analyze(ctx context.Context, lat, lon float64, radius int) (domain.MarketAnalysis, error) {
	if radius <= 0 {
		radius = domain.DefaultRadius
	}
	res, err := m.search.Search(ctx, domain.SearchQuery{
		Center: domain.Coords{Lat: lat, Lon: lon},
		Radius: radius,
		Limit:  m.policy.AnalysisCap,
	})
	if err != nil {
		return domain.MarketAnalysis{}, fmt.Errorf("analyze market: %w", err)
	}

	a := Summarize(res.Restaurants, radius, m.policy)
	a.Location = domain.Location{Latitude: lat, Longitude: lon, Address: m.address(ctx, lat, lon)}
	a.DataSource = "live"
	if res.Fallback {
		a.DataSource = "fallback"
	}

	observability.ObserveOpportunity(a.OpportunityScore)
	log.Info().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("radius", radius).
		Int("competitors", a.CompetitorCount).
		Str("saturation", string(a.MarketSaturation)).
		Int("score", a.OpportunityScore).
		Str("data", a.DataSource).
		Msg("market analyzed")
	return a, nil
}

// address degrades to "lat, lon" on any geocoding failure.
func (m *MarketAnalyzer) address(ctx context.Context, lat, lon float64) string {
	literal := strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
	if m.geo == nil {
		return literal
	}
	addr, err := m.geo.ReverseGeocode(ctx, lat, lon)
	if err != nil || addr == "" {
		log.Debug().Err(err).Msg("reverse geocode failed, using coordinates")
		return literal
	}
	return addr
}
