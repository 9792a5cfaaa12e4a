package domain

import "time"

// Source tags the provider a Restaurant was normalized from.
type Source string

const (
	SourceYelp       Source = "yelp"
	SourceFoursquare Source = "foursquare"
	SourceGoogle     Source = "google"
	SourceFallback   Source = "fallback" // synthetic placeholder data, never real competitors
)

// PriceRange is the ordinal price bracket shared by every provider.
type PriceRange string

const (
	Price1 PriceRange = "$"
	Price2 PriceRange = "$$"
	Price3 PriceRange = "$$$"
	Price4 PriceRange = "$$$$"
)

// PriceRanges lists the brackets in ascending order.
var PriceRanges = []PriceRange{Price1, Price2, Price3, Price4}

// Level returns 1..4, or 0 for an unknown bracket.
func (p PriceRange) Level() int {
	for i, v := range PriceRanges {
		if v == p {
			return i + 1
		}
	}
	return 0
}

func (p PriceRange) Valid() bool { return p.Level() > 0 }

type Restaurant struct {
	ID          string         `json:"id"` // <source>_<provider id>
	Source      Source         `json:"source"`
	Name        string         `json:"name"`
	Cuisine     []string       `json:"cuisine"`
	Address     string         `json:"address"`
	PriceRange  PriceRange     `json:"priceRange"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Rating      float64        `json:"rating"` // 0..5
	ReviewCount int            `json:"reviewCount"`
	Phone       string         `json:"phone,omitempty"`
	Website     string         `json:"website,omitempty"`
	Hours       []OpeningHours `json:"hours,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	LastUpdated time.Time      `json:"lastUpdated"` // time of normalization
}

type OpeningHours struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	IsOpen bool   `json:"isOpen"`
}

type Coords struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// SearchQuery is what every provider adapter receives.
type SearchQuery struct {
	Center    Coords
	Radius    int        // meters
	Cuisine   string     // free-text cuisine/term filter
	Price     PriceRange // optional single bracket filter
	MinRating float64    // applied after merging
	Limit     int
	Offset    int
}

const (
	DefaultRadius = 1000
	DefaultLimit  = 20
)

// WithDefaults fills the zero radius and limit.
func (q SearchQuery) WithDefaults() SearchQuery {
	if q.Radius <= 0 {
		q.Radius = DefaultRadius
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// SearchResult is the aggregated outcome of one search.
// Fallback is true when Restaurants holds only placeholder data.
type SearchResult struct {
	Restaurants []Restaurant      `json:"restaurants"`
	Fallback    bool              `json:"fallback"`
	Failures    map[Source]string `json:"failures,omitempty"`
}
