package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"lifelink/internal/types"
)

var ErrNoGeocode = errors.New("address could not be geocoded")

// GeocodeService resolves free-text request locations to coordinates.
type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(client *maps.Client) *GeocodeService {
	return &GeocodeService{client: client}
}

func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.Point{}, ErrNoGeocode
	}
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address, Language: "en"})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return types.Point{}, fmt.Errorf("%w: %q", ErrNoGeocode, address)
		}
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("%w: %q", ErrNoGeocode, address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
