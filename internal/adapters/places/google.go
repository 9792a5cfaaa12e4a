package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market_intel/internal/domain"
)

const googleBase = "https://maps.googleapis.com"

// Google searches Places Nearby Search. The same key also serves the
// Geocoding API, see Geocoder.
type Google struct {
	key string
	t   *transport
}

func NewGoogle(key string, o Options) *Google {
	return &Google{key: key, t: newTransport(domain.SourceGoogle, googleBase, o)}
}

func (g *Google) Name() domain.Source { return domain.SourceGoogle }

func (g *Google) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	if g.key == "" {
		return nil, missingKey(domain.SourceGoogle, "GOOGLE_API_KEY")
	}
	q = q.WithDefaults()

	v := url.Values{}
	v.Set("location", latLng(q.Center.Lat, q.Center.Lon))
	v.Set("radius", strconv.Itoa(min(q.Radius, 50000)))
	v.Set("type", "restaurant")
	v.Set("key", g.key)
	if q.Cuisine != "" {
		v.Set("keyword", q.Cuisine)
	}
	if lvl := q.Price.Level(); lvl > 0 {
		v.Set("minprice", strconv.Itoa(lvl))
		v.Set("maxprice", strconv.Itoa(lvl))
	}

	var payload googleNearbyResponse
	if err := g.t.getJSON(ctx, "/maps/api/place/nearbysearch/json", v.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	if err := googleStatusErr(domain.SourceGoogle, payload.Status, payload.ErrorMessage); err != nil {
		return nil, err
	}
	return mapGoogle(payload.Results, g.t.base, g.t.now()), nil
}

// ---- payload ----

type googleNearbyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []googlePlace `json:"results"`
}

type googlePlace struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Types    []string `json:"types"`
	Vicinity string   `json:"vicinity"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
	PriceLevel       int     `json:"price_level"` // 0..4, absent means unknown
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

func mapGoogle(in []googlePlace, base string, now time.Time) []domain.Restaurant {
	out := make([]domain.Restaurant, 0, len(in))
	for _, p := range in {
		r := domain.Restaurant{
			ID:          "google_" + p.PlaceID,
			Source:      domain.SourceGoogle,
			Name:        p.Name,
			Cuisine:     []string{},
			Address:     p.Vicinity,
			PriceRange:  PriceFromLevel(p.PriceLevel),
			Latitude:    p.Geometry.Location.Lat,
			Longitude:   p.Geometry.Location.Lng,
			Rating:      clampRating(p.Rating),
			ReviewCount: nonNeg(p.UserRatingsTotal),
			LastUpdated: now,
		}
		for _, t := range p.Types {
			if strings.Contains(t, "food") {
				r.Cuisine = append(r.Cuisine, t)
			}
		}
		if len(p.Types) > 0 {
			r.Categories = append([]string(nil), p.Types...)
		}
		// photo URLs are returned without the key; clients sign them themselves
		for _, ph := range p.Photos {
			if ph.PhotoReference != "" {
				r.Photos = append(r.Photos, base+"/maps/api/place/photo?maxwidth=300&photoreference="+url.QueryEscape(ph.PhotoReference))
			}
		}
		out = append(out, r)
	}
	return out
}

// googleStatusErr maps Google's in-body status onto a ProviderError.
// OK and ZERO_RESULTS are successes.
func googleStatusErr(p domain.Source, status, msg string) error {
	var code int
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		code = http.StatusTooManyRequests
	case "REQUEST_DENIED":
		code = http.StatusForbidden
	case "INVALID_REQUEST":
		code = http.StatusBadRequest
	case "":
		return &domain.ProviderError{Provider: p, Status: http.StatusOK, Malformed: true, Err: errors.New("missing status")}
	default:
		code = http.StatusBadGateway
	}
	pe := &domain.ProviderError{Provider: p, Status: code, Code: status}
	if msg != "" {
		pe.Err = errors.New(msg)
	}
	return pe
}

func latLng(lat, lon float64) string {
	return fmt.Sprintf("%s,%s", strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
}
