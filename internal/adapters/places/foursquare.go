package places

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"market_intel/internal/domain"
)

const (
	foursquareBase = "https://api.foursquare.com"

	// Foursquare taxonomy id for "Restaurant".
	foursquareRestaurantCategory = "13065"
	foursquareFields             = "fsq_id,name,categories,location,geocodes,rating,stats,price,website,tel,photos,hours"
)

// Foursquare searches the Places API v3.
type Foursquare struct {
	key string
	t   *transport
}

func NewFoursquare(key string, o Options) *Foursquare {
	return &Foursquare{key: key, t: newTransport(domain.SourceFoursquare, foursquareBase, o)}
}

func (f *Foursquare) Name() domain.Source { return domain.SourceFoursquare }

func (f *Foursquare) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Restaurant, error) {
	if f.key == "" {
		return nil, missingKey(domain.SourceFoursquare, "FOURSQUARE_API_KEY")
	}
	q = q.WithDefaults()

	v := url.Values{}
	v.Set("ll", strconv.FormatFloat(q.Center.Lat, 'f', -1, 64)+","+strconv.FormatFloat(q.Center.Lon, 'f', -1, 64))
	v.Set("radius", strconv.Itoa(min(q.Radius, 100000)))
	v.Set("categories", foursquareRestaurantCategory)
	v.Set("limit", strconv.Itoa(min(q.Limit, 50)))
	v.Set("fields", foursquareFields)
	if q.Cuisine != "" {
		v.Set("query", q.Cuisine)
	}
	if lvl := q.Price.Level(); lvl > 0 {
		v.Set("min_price", strconv.Itoa(lvl))
		v.Set("max_price", strconv.Itoa(lvl))
	}

	hdr := http.Header{}
	hdr.Set("Authorization", f.key)

	var payload foursquareResponse
	if err := f.t.getJSON(ctx, "/v3/places/search", v.Encode(), hdr, &payload); err != nil {
		return nil, err
	}
	return mapFoursquare(payload.Results, f.t.now()), nil
}

// ---- payload ----

type foursquareResponse struct {
	Results []foursquarePlace `json:"results"`
}

type foursquarePlace struct {
	FsqID      string `json:"fsq_id"`
	Name       string `json:"name"`
	Categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Rating float64 `json:"rating"` // 0..10
	Stats  struct {
		TotalRatings int `json:"total_ratings"`
	} `json:"stats"`
	Price   int    `json:"price"`
	Website string `json:"website"`
	Tel     string `json:"tel"`
	Photos  []struct {
		Prefix string `json:"prefix"`
		Suffix string `json:"suffix"`
	} `json:"photos"`
	Hours struct {
		OpenNow bool `json:"open_now"`
		Regular []struct {
			Day   int    `json:"day"` // 1 = Monday
			Open  string `json:"open"`
			Close string `json:"close"`
		} `json:"regular"`
	} `json:"hours"`
}

func mapFoursquare(in []foursquarePlace, now time.Time) []domain.Restaurant {
	out := make([]domain.Restaurant, 0, len(in))
	for _, p := range in {
		r := domain.Restaurant{
			ID:          "foursquare_" + p.FsqID,
			Source:      domain.SourceFoursquare,
			Name:        p.Name,
			Cuisine:     make([]string, 0, len(p.Categories)),
			Address:     p.Location.FormattedAddress,
			PriceRange:  PriceFromLevel(p.Price),
			Latitude:    p.Geocodes.Main.Latitude,
			Longitude:   p.Geocodes.Main.Longitude,
			Rating:      clampRating(p.Rating / 2),
			ReviewCount: nonNeg(p.Stats.TotalRatings),
			Phone:       p.Tel,
			Website:     p.Website,
			LastUpdated: now,
		}
		for _, c := range p.Categories {
			if c.Name != "" {
				r.Cuisine = append(r.Cuisine, c.Name)
				r.Categories = append(r.Categories, c.Name)
			}
		}
		for _, ph := range p.Photos {
			if ph.Prefix != "" {
				r.Photos = append(r.Photos, ph.Prefix+"300x300"+ph.Suffix)
			}
		}
		for _, h := range p.Hours.Regular {
			r.Hours = append(r.Hours, domain.OpeningHours{
				Day:    dayName(h.Day - 1),
				Open:   clock(h.Open),
				Close:  clock(h.Close),
				IsOpen: true,
			})
		}
		out = append(out, r)
	}
	return out
}
