// README: Google Maps geocoding for driver addresses.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

var ErrNoResult = errors.New("address not found")

// Geocoder resolves addresses through the Google Geocoding API.
type Geocoder struct {
	client *maps.Client
	region string
}

// NewGeocoder creates a geocoder biased to region (a ccTLD such as "mm").
func NewGeocoder(apiKey, region string, opts ...maps.ClientOption) (*Geocoder, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

// Geocode returns the coordinates of the best match for address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return 0, 0, ErrNoResult
		}
		return 0, 0, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResult
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
