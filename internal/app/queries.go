package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"market_intel/internal/domain"
)

// QueryService fronts the aggregator for the HTTP API with a read-through
// cache. Placeholder (fallback) results are never cached.
type QueryService struct {
	search   domain.Searcher
	cache    domain.Cache
	cacheTTL time.Duration
	failures domain.FailureLog
}

func NewQueryService(s domain.Searcher, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{search: s, cache: c, cacheTTL: ttl}
}

// WithFailureLog exposes recorded provider failures through the service.
func (s *QueryService) WithFailureLog(fl domain.FailureLog) *QueryService {
	s.failures = fl
	return s
}

func (s *QueryService) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	q = q.WithDefaults()
	key := searchKey(q)

	if s.cache != nil {
		var cached domain.SearchResult
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	res, err := s.search.Search(ctx, q)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if s.cache != nil && !res.Fallback && s.cacheTTL > 0 {
		_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	}
	return res, nil
}

func (s *QueryService) RecentFailures(ctx context.Context, q domain.FailuresQuery) ([]domain.ProviderFailure, error) {
	if s.failures == nil {
		return nil, domain.ErrNotFound
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	return s.failures.ListFailures(ctx, q)
}

// searchKey rounds the center to 4 decimals so nearby identical queries share an entry.
// MinRating is kept exact: rounding it would let a looser threshold answer a stricter one.
func searchKey(q domain.SearchQuery) string {
	return fmt.Sprintf("search:%.4f:%.4f:%d:%s:%s:%s:%d:%d",
		round4(q.Center.Lat), round4(q.Center.Lon), q.Radius,
		strings.ToLower(strings.TrimSpace(q.Cuisine)), q.Price,
		strconv.FormatFloat(q.MinRating, 'f', -1, 64), q.Limit, q.Offset)
}
