package shared

import (
	"time"

	"market_intel/internal/adapters/places"
	"market_intel/internal/app"
	"market_intel/internal/domain"
)

// AttemptTimeout splits ProviderTimeout evenly over the first call and its
// retries, so a hung attempt still leaves budget for the next one.
// Backoff sleeps come out of the same budget.
func (c Config) AttemptTimeout() time.Duration {
	n := max(c.ProviderRetries, 0) + 1
	return c.ProviderTimeout / time.Duration(n)
}

// RequestTimeout covers one fan-out and the reverse geocode that follows
// it in a market analysis, plus slack for encoding.
func (c Config) RequestTimeout() time.Duration {
	return 2*c.ProviderTimeout + 5*time.Second
}

// Providers builds the adapters in canonical precedence order
// (yelp, foursquare, google), each wrapped in the configured retry policy.
// The aggregator bounds the whole retry loop by ProviderTimeout.
func (c Config) Providers() []domain.Provider {
	opts := func(base string) places.Options {
		return places.Options{BaseURL: base, Timeout: c.AttemptTimeout(), RPS: c.ProviderRPS}
	}
	return []domain.Provider{
		app.WithRetry(places.NewYelp(c.YelpKey, opts(c.YelpBase)), c.ProviderRetries),
		app.WithRetry(places.NewFoursquare(c.FoursquareKey, opts(c.FoursquareBase)), c.ProviderRetries),
		app.WithRetry(places.NewGoogle(c.GoogleKey, opts(c.GoogleBase)), c.ProviderRetries),
	}
}

// Geocoder shares the Google key and base URL with the places adapter.
func (c Config) Geocoder() *places.Geocoder {
	return places.NewGeocoder(c.GoogleKey, places.Options{BaseURL: c.GoogleBase, Timeout: c.ProviderTimeout, RPS: c.ProviderRPS})
}

// Aggregator assembles the fan-out search over Providers.
func (c Config) Aggregator(extra ...app.AggregatorOption) *app.Aggregator {
	opts := append([]app.AggregatorOption{
		app.WithProviderTimeout(c.ProviderTimeout),
		app.WithFallback(c.FallbackEnabled),
	}, extra...)
	return app.NewAggregator(c.Providers(), opts...)
}
