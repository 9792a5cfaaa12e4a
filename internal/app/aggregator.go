package app

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"market_intel/internal/adapters/observability"
	"market_intel/internal/domain"
)

// Aggregator fans a search out to every provider and merges what settles.
// Provider order is the dedupe precedence: earlier providers win.
type Aggregator struct {
	providers []domain.Provider
	timeout   time.Duration
	fallback  bool
	failures  domain.FailureLog
	now       func() time.Time
	writes    sync.WaitGroup
}

type AggregatorOption func(*Aggregator)

// WithProviderTimeout bounds each provider call independently.
func WithProviderTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithFallback toggles placeholder data when every provider fails.
func WithFallback(enabled bool) AggregatorOption {
	return func(a *Aggregator) { a.fallback = enabled }
}

func WithFailureLog(fl domain.FailureLog) AggregatorOption {
	return func(a *Aggregator) { a.failures = fl }
}

func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(providers []domain.Provider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		providers: providers,
		timeout:   8 * time.Second,
		fallback:  true,
		now:       time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type outcome struct {
	restaurants []domain.Restaurant
	err         error
}

// Search runs every provider concurrently and waits for all of them to
// settle. A failing provider never cancels the others.
func (a *Aggregator) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	q = q.WithDefaults()

	outcomes := make([]outcome, len(a.providers))
	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			rs, err := p.Search(pctx, q)
			outcomes[i] = outcome{restaurants: rs, err: err}
			return nil // failures are kept per slot, never short-circuit
		})
	}
	_ = g.Wait()

	var merged []domain.Restaurant
	failed := make(map[domain.Source]error)
	var rows []domain.ProviderFailure
	succeeded := 0
	for i, o := range outcomes {
		name := a.providers[i].Name()
		if o.err != nil {
			failed[name] = o.err
			rows = append(rows, a.recordFailure(name, o.err))
			continue
		}
		succeeded++
		observability.ObserveProvider(string(name), "ok")
		merged = append(merged, o.restaurants...)
	}
	a.logFailures(ctx, rows)

	if succeeded == 0 {
		if err := ctx.Err(); err != nil {
			return domain.SearchResult{}, err
		}
		if !a.fallback {
			return domain.SearchResult{}, &domain.AggregateExhaustedError{Failures: failed}
		}
		log.Warn().
			Int("providers", len(a.providers)).
			Float64("lat", q.Center.Lat).
			Float64("lon", q.Center.Lon).
			Msg("all providers failed, serving fallback data")
		observability.ObserveFallback()
		rs := FallbackRestaurants(q.Center, a.now())
		SortRestaurants(rs)
		return domain.SearchResult{Restaurants: rs, Fallback: true, Failures: reasons(failed)}, nil
	}

	out := Dedupe(merged)
	if q.MinRating > 0 {
		out = slices.DeleteFunc(out, func(r domain.Restaurant) bool { return r.Rating < q.MinRating })
	}
	SortRestaurants(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return domain.SearchResult{Restaurants: out, Failures: reasons(failed)}, nil
}

// SearchRestaurants is the list-only form of Search.
func (a *Aggregator) SearchRestaurants(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	res, err := a.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Restaurants, nil
}

func (a *Aggregator) recordFailure(p domain.Source, err error) domain.ProviderFailure {
	kind := domain.KindOf(err)
	observability.ObserveProvider(string(p), "error")
	log.Warn().Str("provider", string(p)).Str("kind", kind).Err(err).Msg("provider search failed")
	return domain.ProviderFailure{
		Provider: p,
		Kind:     kind,
		Status:   domain.StatusOf(err),
		Reason:   truncate(err.Error(), 512),
	}
}

// logFailures writes the audit rows in the background so a slow failure
// log never delays the response. Wait blocks until pending writes finish.
func (a *Aggregator) logFailures(ctx context.Context, rows []domain.ProviderFailure) {
	if a.failures == nil || len(rows) == 0 {
		return
	}
	// the request may already be cancelled; the audit rows should still land
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	a.writes.Add(1)
	go func() {
		defer a.writes.Done()
		defer cancel()
		for _, f := range rows {
			if err := a.failures.LogFailure(lctx, f); err != nil {
				log.Warn().Err(err).Str("provider", string(f.Provider)).Msg("failure log write failed")
			}
		}
	}()
}

// Wait blocks until background failure-log writes have finished.
func (a *Aggregator) Wait() { a.writes.Wait() }

// Dedupe keeps the first restaurant per composite key and per id.
func Dedupe(in []domain.Restaurant) []domain.Restaurant {
	out := make([]domain.Restaurant, 0, len(in))
	seenKey := make(map[string]struct{}, len(in))
	seenID := make(map[string]struct{}, len(in))
	for _, r := range in {
		k := DedupKey(r)
		if _, ok := seenKey[k]; ok {
			continue
		}
		if _, ok := seenID[r.ID]; ok {
			continue
		}
		seenKey[k] = struct{}{}
		seenID[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupKey is lower-cased, whitespace-collapsed name plus coordinates
// rounded to 4 decimals (about 11 m).
func DedupKey(r domain.Restaurant) string {
	name := strings.Join(strings.Fields(strings.ToLower(r.Name)), " ")
	return fmt.Sprintf("%s|%.4f|%.4f", name, round4(r.Latitude), round4(r.Longitude))
}

func round4(f float64) float64 {
	v := math.Round(f*1e4) / 1e4
	if v == 0 {
		return 0 // drop negative zero
	}
	return v
}

// SortRestaurants orders by rating desc, review count desc, id asc.
func SortRestaurants(rs []domain.Restaurant) {
	slices.SortFunc(rs, func(a, b domain.Restaurant) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ReviewCount, a.ReviewCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func reasons(failed map[domain.Source]error) map[domain.Source]string {
	if len(failed) == 0 {
		return nil
	}
	out := make(map[domain.Source]string, len(failed))
	for k, v := range failed {
		out[k] = v.Error()
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
