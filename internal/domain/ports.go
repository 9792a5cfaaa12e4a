package domain

import (
	"context"
	"time"
)

// Provider is one external restaurant source.
type Provider interface {
	Name() Source
	Search(ctx context.Context, q SearchQuery) ([]Restaurant, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// Searcher is the aggregation use case as seen by the analyzer and the API.
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) (SearchResult, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// FailureLog records provider failures for later inspection.
type FailureLog interface {
	LogFailure(ctx context.Context, f ProviderFailure) error
	ListFailures(ctx context.Context, q FailuresQuery) ([]ProviderFailure, error)
}

type ProviderFailure struct {
	ID       int64     `json:"id"`
	Provider Source    `json:"provider"`
	Kind     string    `json:"kind"` // configuration|provider|transport|other
	Status   int       `json:"status,omitempty"`
	Reason   string    `json:"reason"`
	SeenAt   time.Time `json:"seenAt"`
}

type FailuresQuery struct {
	Provider *Source
	Limit    int
}
