package app

import (
	"fmt"
	"strconv"
	"time"

	"market_intel/internal/domain"
)

// fallbackSet is placed at fixed offsets (degrees) around the search center.
var fallbackSet = []struct {
	name       string
	cuisine    []string
	price      domain.PriceRange
	rating     float64
	reviews    int
	dLat, dLon float64
}{
	{"The Local Bistro", []string{"American", "Contemporary"}, domain.Price2, 4.2, 156, 0.0021, -0.0034},
	{"Golden Noodle House", []string{"Chinese", "Noodles"}, domain.Price1, 4.0, 98, -0.0042, 0.0017},
	{"Trattoria Sole", []string{"Italian"}, domain.Price3, 4.4, 231, 0.0038, 0.0029},
	{"Green Bowl Cafe", []string{"Vegetarian", "Cafe"}, domain.Price2, 3.9, 64, -0.0013, -0.0046},
	{"Harbor Grill", []string{"Seafood", "Steakhouse"}, domain.Price4, 4.6, 312, 0.0049, -0.0008},
}

// FallbackSize is the number of placeholder restaurants always returned.
var FallbackSize = len(fallbackSet)

// FallbackRestaurants returns placeholder data near center. Every entry is
// tagged domain.SourceFallback so it is never mistaken for real competitors.
func FallbackRestaurants(center domain.Coords, now time.Time) []domain.Restaurant {
	out := make([]domain.Restaurant, 0, len(fallbackSet))
	for i, f := range fallbackSet {
		lat, lon := center.Lat+f.dLat, center.Lon+f.dLon
		out = append(out, domain.Restaurant{
			ID:          "fallback_" + strconv.Itoa(i+1),
			Source:      domain.SourceFallback,
			Name:        f.name,
			Cuisine:     append([]string(nil), f.cuisine...),
			Address:     fmt.Sprintf("Placeholder near %.4f, %.4f", lat, lon),
			PriceRange:  f.price,
			Latitude:    lat,
			Longitude:   lon,
			Rating:      f.rating,
			ReviewCount: f.reviews,
			Categories:  []string{"placeholder"},
			LastUpdated: now,
		})
	}
	return out
}
