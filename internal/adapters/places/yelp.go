package places

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"market_intel/internal/domain"
)

const yelpBase = "https://api.yelp.com"

// Yelp searches the Yelp Fusion business search endpoint.
type Yelp struct {
	key string
	t   *transport
}

func NewYelp(key string, o Options) *Yelp {
	return &Yelp{key: key, t: newTransport(domain.SourceYelp, yelpBase, o)}
}

func (y *Yelp) Name() domain.Source { return domain.SourceYelp }

func (y *Yelp) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	if y.key == "" {
		return nil, missingKey(domain.SourceYelp, "YELP_API_KEY")
	}
	q = q.WithDefaults()

	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Center.Lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Center.Lon, 'f', -1, 64))
	v.Set("radius", strconv.Itoa(min(q.Radius, 40000)))
	v.Set("categories", "restaurants")
	v.Set("limit", strconv.Itoa(min(q.Limit, 50)))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Cuisine != "" {
		v.Set("term", q.Cuisine)
	}
	if lvl := q.Price.Level(); lvl > 0 {
		v.Set("price", strconv.Itoa(lvl))
	}

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+y.key)

	var payload yelpSearchResponse
	if err := y.t.getJSON(ctx, "/v3/businesses/search", v.Encode(), hdr, &payload); err != nil {
		return nil, err
	}
	return mapYelp(payload.Businesses, y.t.now()), nil
}

// ---- payload ----

type yelpSearchResponse struct {
	Businesses []yelpBusiness `json:"businesses"`
	Total      int            `json:"total"`
}

type yelpBusiness struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ImageURL    string  `json:"image_url"`
	URL         string  `json:"url"`
	Phone       string  `json:"phone"`
	ReviewCount int     `json:"review_count"`
	Rating      float64 `json:"rating"`
	Price       string  `json:"price"`
	Categories  []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Photos        []string `json:"photos"`
	BusinessHours []struct {
		Open []struct {
			Day   int    `json:"day"`
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"open"`
		IsOpenNow bool `json:"is_open_now"`
	} `json:"business_hours"`
}

func mapYelp(in []yelpBusiness, now time.Time) []domain.Restaurant {
	out := make([]domain.Restaurant, 0, len(in))
	for _, b := range in {
		r := domain.Restaurant{
			ID:          "yelp_" + b.ID,
			Source:      domain.SourceYelp,
			Name:        b.Name,
			Cuisine:     make([]string, 0, len(b.Categories)),
			Address:     joinNonEmpty(", ", b.Location.DisplayAddress...),
			PriceRange:  ParsePrice(b.Price),
			Latitude:    b.Coordinates.Latitude,
			Longitude:   b.Coordinates.Longitude,
			Rating:      clampRating(b.Rating),
			ReviewCount: nonNeg(b.ReviewCount),
			Phone:       b.Phone,
			Website:     b.URL,
			LastUpdated: now,
		}
		for _, c := range b.Categories {
			if c.Title != "" {
				r.Cuisine = append(r.Cuisine, c.Title)
			}
			if c.Alias != "" {
				r.Categories = append(r.Categories, c.Alias)
			}
		}
		switch {
		case len(b.Photos) > 0:
			r.Photos = b.Photos
		case b.ImageURL != "":
			r.Photos = []string{b.ImageURL}
		}
		if len(b.BusinessHours) > 0 {
			for _, o := range b.BusinessHours[0].Open {
				r.Hours = append(r.Hours, domain.OpeningHours{
					Day:    dayName(o.Day),
					Open:   clock(o.Start),
					Close:  clock(o.End),
					IsOpen: true,
				})
			}
		}
		out = append(out, r)
	}
	return out
}
