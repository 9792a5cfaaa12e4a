package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market_intel/internal/domain"
)

// ---- fakes ----

type fakeProvider struct {
	name  domain.Source
	rs    []domain.Restaurant
	err   error
	delay time.Duration
	calls int32
}

func (f *fakeProvider) Name() domain.Source { return f.name }

func (f *fakeProvider) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &domain.TransportError{Provider: f.name, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rs, nil
}

// scriptedProvider returns errs[i] on call i, then succeeds with rs.
type scriptedProvider struct {
	name  domain.Source
	errs  []error
	rs    []domain.Restaurant
	calls int
}

func (s *scriptedProvider) Name() domain.Source { return s.name }

func (s *scriptedProvider) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) {
		return nil, s.errs[i]
	}
	return s.rs, nil
}

type fakeFailureLog struct {
	mu   sync.Mutex
	rows []domain.ProviderFailure
}

func (f *fakeFailureLog) LogFailure(ctx context.Context, pf domain.ProviderFailure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, pf)
	return nil
}

func (f *fakeFailureLog) ListFailures(ctx context.Context, q domain.FailuresQuery) ([]domain.ProviderFailure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ProviderFailure
	for _, r := range f.rows {
		if q.Provider != nil && r.Provider != *q.Provider {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// blockingFailureLog holds every write until release is closed.
type blockingFailureLog struct {
	release chan struct{}
	writes  atomic.Int32
}

func (b *blockingFailureLog) LogFailure(ctx context.Context, pf domain.ProviderFailure) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.writes.Add(1)
	return nil
}

func (b *blockingFailureLog) ListFailures(ctx context.Context, q domain.FailuresQuery) ([]domain.ProviderFailure, error) {
	return nil, nil
}

type fakeSearcher struct {
	res   domain.SearchResult
	err   error
	last  domain.SearchQuery
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	f.calls++
	f.last = q
	return f.res, f.err
}

type fakeGeocoder struct {
	addr string
	err  error
}

func (g fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return g.addr, g.err
}

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.SearchResult:
		*d = v.(domain.SearchResult)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- helpers ----

var nycCenter = domain.Coords{Lat: 40.7128, Lon: -74.0060}

func rest(src domain.Source, id, name string, rating float64, reviews int, lat, lon float64) domain.Restaurant {
	return domain.Restaurant{
		ID:          string(src) + "_" + id,
		Source:      src,
		Name:        name,
		Cuisine:     []string{"American"},
		PriceRange:  domain.Price2,
		Latitude:    lat,
		Longitude:   lon,
		Rating:      rating,
		ReviewCount: reviews,
	}
}

func ratings(rs []domain.Restaurant) []float64 {
	out := make([]float64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Rating)
	}
	return out
}
