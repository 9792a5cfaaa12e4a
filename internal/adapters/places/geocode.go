package places

import (
	"context"
	"fmt"
	"net/url"

	"market_intel/internal/domain"
)

// Geocoder resolves coordinates to a formatted address with the Google
// Geocoding API.
type Geocoder struct {
	key string
	t   *transport
}

func NewGeocoder(key string, o Options) *Geocoder {
	return &Geocoder{key: key, t: newTransport(domain.SourceGoogle, googleBase, o)}
}

func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	if g.key == "" {
		return "", missingKey(domain.SourceGoogle, "GOOGLE_API_KEY")
	}
	v := url.Values{}
	v.Set("latlng", latLng(lat, lon))
	v.Set("key", g.key)

	var payload struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
	}
	if err := g.t.getJSON(ctx, "/maps/api/geocode/json", v.Encode(), nil, &payload); err != nil {
		return "", err
	}
	if err := googleStatusErr(domain.SourceGoogle, payload.Status, payload.ErrorMessage); err != nil {
		return "", err
	}
	if len(payload.Results) == 0 || payload.Results[0].FormattedAddress == "" {
		return "", fmt.Errorf("reverse geocode %s: %w", latLng(lat, lon), domain.ErrNotFound)
	}
	return payload.Results[0].FormattedAddress, nil
}
