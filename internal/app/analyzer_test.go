package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market_intel/internal/app"
	"market_intel/internal/domain"
)

func TestAnalyze_UsesCapAndGeocodedAddress(t *testing.T) {
	s := &fakeSearcher{res: domain.SearchResult{Restaurants: []domain.Restaurant{
		rest(domain.SourceYelp, "1", "A", 3.0, 1, 40.71, -74.0),
		rest(domain.SourceYelp, "2", "B", 4.0, 1, 40.72, -74.0),
	}}}
	m := app.NewMarketAnalyzer(s, fakeGeocoder{addr: "New York, NY, USA"}, domain.DefaultPolicy())

	a, err := m.Analyze(context.Background(), 40.7128, -74.0060, 1000)
	require.NoError(t, err)

	assert.Equal(t, 100, s.last.Limit)
	assert.Equal(t, 1000, s.last.Radius)
	assert.Equal(t, "New York, NY, USA", a.Location.Address)
	assert.Equal(t, 2, a.CompetitorCount)
	assert.InDelta(t, 3.5, a.AverageRating, 1e-9)
	assert.Equal(t, map[string]int{"$$": 2}, a.PriceDistribution)
	assert.Equal(t, "live", a.DataSource)
}

func TestAnalyze_GeocodeFailureFallsBackToCoordinates(t *testing.T) {
	s := &fakeSearcher{}
	m := app.NewMarketAnalyzer(s, fakeGeocoder{err: errors.New("quota")}, domain.DefaultPolicy())

	a, err := m.Analyze(context.Background(), 40.7128, -74.0060, 0)
	require.NoError(t, err)
	assert.Equal(t, "40.7128, -74.006", a.Location.Address)
	assert.Equal(t, domain.DefaultRadius, a.Radius)

	noGeo := app.NewMarketAnalyzer(s, nil, domain.DefaultPolicy())
	a, err = noGeo.Analyze(context.Background(), 1.5, 2, 500)
	require.NoError(t, err)
	assert.Equal(t, "1.5, 2", a.Location.Address)
}

func TestAnalyze_ExhaustedSearchPropagates(t *testing.T) {
	s := &fakeSearcher{err: &domain.AggregateExhaustedError{Failures: map[domain.Source]error{
		domain.SourceYelp: errors.New("down"),
	}}}
	m := app.NewMarketAnalyzer(s, fakeGeocoder{addr: "x"}, domain.DefaultPolicy())

	_, err := m.Analyze(context.Background(), 0, 0, 1000)
	var ex *domain.AggregateExhaustedError
	assert.ErrorAs(t, err, &ex)
}

func TestAnalyze_FallbackDataIsFlagged(t *testing.T) {
	y, f, g := threeProviders()
	y.err, f.err, g.err = errors.New("x"), errors.New("x"), errors.New("x")
	agg := app.NewAggregator([]domain.Provider{y, f, g})
	m := app.NewMarketAnalyzer(agg, nil, domain.DefaultPolicy())

	a, err := m.Analyze(context.Background(), nycCenter.Lat, nycCenter.Lon, 1000)
	require.NoError(t, err)
	assert.Equal(t, "fallback", a.DataSource)
	assert.Equal(t, app.FallbackSize, a.CompetitorCount)
	assert.GreaterOrEqual(t, a.OpportunityScore, 0)
	assert.LessOrEqual(t, a.OpportunityScore, 100)
}
