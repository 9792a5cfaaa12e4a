package places_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"market_intel/internal/adapters/places"
	"market_intel/internal/app"
	"market_intel/internal/domain"
)

var nyc = domain.SearchQuery{Center: domain.Coords{Lat: 40.7128, Lon: -74.0060}, Radius: 1000}

func opts(base string) places.Options {
	return places.Options{
		BaseURL: base,
		RPS:     100, // high RPS for tests
		Timeout: 2 * time.Second,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestYelp_Search_MapsBusinesses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/businesses/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer yelp-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		q := r.URL.Query()
		if q.Get("categories") != "restaurants" || q.Get("radius") != "1000" || q.Get("term") != "thai" || q.Get("price") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"businesses":[{
			"id":"abc","name":"Thai Town","url":"https://yelp.com/biz/abc","phone":"+15550100",
			"review_count":120,"rating":4.5,"price":"$$",
			"categories":[{"alias":"thai","title":"Thai"}],
			"coordinates":{"latitude":40.713,"longitude":-74.001},
			"location":{"display_address":["1 Main St","New York, NY 10001"]},
			"image_url":"https://img/abc.jpg",
			"business_hours":[{"open":[{"day":0,"start":"1100","end":"2200"}],"is_open_now":true}]
		}]}`))
	}))
	defer ts.Close()

	y := places.NewYelp("yelp-key", opts(ts.URL))
	q := nyc
	q.Cuisine = "thai"
	q.Price = domain.Price2
	got, err := y.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 restaurant, got %d", len(got))
	}
	r := got[0]
	if r.ID != "yelp_abc" || r.Source != domain.SourceYelp || r.Name != "Thai Town" {
		t.Fatalf("unexpected identity: %+v", r)
	}
	if r.Address != "1 Main St, New York, NY 10001" || r.PriceRange != domain.Price2 {
		t.Fatalf("unexpected address/price: %q %q", r.Address, r.PriceRange)
	}
	if len(r.Cuisine) != 1 || r.Cuisine[0] != "Thai" || r.Categories[0] != "thai" {
		t.Fatalf("unexpected categories: %+v / %+v", r.Cuisine, r.Categories)
	}
	if len(r.Photos) != 1 || len(r.Hours) != 1 || r.Hours[0].Day != "Monday" || r.Hours[0].Open != "11:00" {
		t.Fatalf("unexpected photos/hours: %+v / %+v", r.Photos, r.Hours)
	}
	if r.Rating != 4.5 || r.ReviewCount != 120 || r.LastUpdated.IsZero() {
		t.Fatalf("unexpected reputation: %+v", r)
	}
}

func TestAdapters_MissingKeyIsConfigurationError(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	for _, p := range []domain.Provider{
		places.NewYelp("", opts(ts.URL)),
		places.NewFoursquare("", opts(ts.URL)),
		places.NewGoogle("", opts(ts.URL)),
	} {
		_, err := p.Search(context.Background(), nyc)
		var ce *domain.ConfigurationError
		if !errors.As(err, &ce) || ce.Provider != p.Name() {
			t.Fatalf("%s: expected ConfigurationError, got %v", p.Name(), err)
		}
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no network calls, got %d", hits)
	}
}

func TestFoursquare_Search_NormalizesRatingAndPrice(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "fsq-key" {
			t.Errorf("missing key header")
		}
		if r.URL.Query().Get("ll") != "40.7128,-74.006" || r.URL.Query().Get("categories") != "13065" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[{
			"fsq_id":"f1","name":"Pasta Place",
			"categories":[{"id":13236,"name":"Italian Restaurant"}],
			"location":{"formatted_address":"2 Broadway"},
			"geocodes":{"main":{"latitude":40.71,"longitude":-74.0}},
			"rating":9.0,"stats":{"total_ratings":42},"price":3,
			"photos":[{"prefix":"https://fsq/img/","suffix":"/p.jpg"}],
			"hours":{"regular":[{"day":7,"open":"0900","close":"1700"}]}
		}]}`))
	}))
	defer ts.Close()

	got, err := places.NewFoursquare("fsq-key", opts(ts.URL)).Search(context.Background(), nyc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	r := got[0]
	if r.ID != "foursquare_f1" || r.Rating != 4.5 || r.PriceRange != domain.Price3 || r.ReviewCount != 42 {
		t.Fatalf("unexpected mapping: %+v", r)
	}
	if r.Photos[0] != "https://fsq/img/300x300/p.jpg" {
		t.Fatalf("unexpected photo %q", r.Photos[0])
	}
	if r.Hours[0].Day != "Sunday" || r.Hours[0].Close != "17:00" {
		t.Fatalf("unexpected hours %+v", r.Hours)
	}
}

func TestGoogle_Search_MapsPlacesWithoutLeakingKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-key" || r.URL.Query().Get("type") != "restaurant" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{
			"place_id":"p1","name":"Corner Diner","types":["restaurant","food","point_of_interest"],
			"vicinity":"3 Elm St","geometry":{"location":{"lat":40.7,"lng":-74.0}},
			"rating":3.8,"user_ratings_total":10,"price_level":1,
			"photos":[{"photo_reference":"ref1"}]
		},{"place_id":"p2","name":"No Price","types":["cafe"],"rating":4.1}]}`))
	}))
	defer ts.Close()

	got, err := places.NewGoogle("g-key", opts(ts.URL)).Search(context.Background(), nyc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got[0].ID != "google_p1" || got[0].PriceRange != domain.Price1 || len(got[0].Cuisine) != 1 || got[0].Cuisine[0] != "food" {
		t.Fatalf("unexpected mapping: %+v", got[0])
	}
	if strings.Contains(got[0].Photos[0], "g-key") || !strings.Contains(got[0].Photos[0], "photoreference=ref1") {
		t.Fatalf("unexpected photo url %q", got[0].Photos[0])
	}
	if got[1].PriceRange != domain.Price1 || got[1].Cuisine == nil {
		t.Fatalf("missing price should default to $ with empty cuisine: %+v", got[1])
	}
}

func TestGoogle_Search_InBodyStatus(t *testing.T) {
	cases := []struct {
		body   string
		status int
		ok     bool
	}{
		{`{"status":"ZERO_RESULTS","results":[]}`, 0, true},
		{`{"status":"REQUEST_DENIED","error_message":"bad key"}`, http.StatusForbidden, false},
		{`{"status":"OVER_QUERY_LIMIT"}`, http.StatusTooManyRequests, false},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(tc.body))
		}))
		got, err := places.NewGoogle("g-key", opts(ts.URL)).Search(context.Background(), nyc)
		ts.Close()
		if tc.ok {
			if err != nil || len(got) != 0 {
				t.Fatalf("%s: expected empty success, got %v %v", tc.body, got, err)
			}
			continue
		}
		var pe *domain.ProviderError
		if !errors.As(err, &pe) || pe.Status != tc.status || pe.Provider != domain.SourceGoogle {
			t.Fatalf("%s: expected ProviderError %d, got %v", tc.body, tc.status, err)
		}
	}
}

func TestAdapter_Non2xxCarriesStatusAndRetryAfter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer ts.Close()

	_, err := places.NewYelp("k", opts(ts.URL)).Search(context.Background(), nyc)
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Status != 429 || pe.RetryAfter != 2*time.Second || !pe.Retryable() {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("adapters must not retry, got %d calls", hits)
	}
}

func TestYelp_WithRetry_RecoversFromTransient5xx(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"businesses":[{"id":"x","name":"Recovered","rating":4}]}`))
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := app.WithRetry(places.NewYelp("k", opts(ts.URL)), 2).Search(ctx, nyc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Recovered" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestAdapter_MalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer ts.Close()

	_, err := places.NewFoursquare("k", opts(ts.URL)).Search(context.Background(), nyc)
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || !pe.Malformed {
		t.Fatalf("expected malformed ProviderError, got %v", err)
	}
}

func TestAdapter_TimeoutIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := places.NewGoogle("k", opts(ts.URL)).Search(ctx, nyc)
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestGeocoder_ReverseGeocode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/geocode/json" || r.URL.Query().Get("latlng") != "40.7128,-74.006" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"New York, NY, USA"}]}`))
	}))
	defer ts.Close()

	addr, err := places.NewGeocoder("g-key", opts(ts.URL)).ReverseGeocode(context.Background(), 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if addr != "New York, NY, USA" {
		t.Fatalf("unexpected address %q", addr)
	}
}
