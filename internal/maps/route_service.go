// Package maps wraps the Google Maps directions and geocoding APIs.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"lifelink/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// NewClient builds a maps client. baseURL is only set by tests.
func NewClient(apiKey, baseURL string) (*maps.Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

type Estimate struct {
	Duration     time.Duration
	DurationText string
	DistanceText string
}

// RouteService estimates driving time between two points.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(client *maps.Client) *RouteService {
	return &RouteService{client: client}
}

func (s *RouteService) Estimate(ctx context.Context, from, to types.Point) (Estimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
		Language:    "en",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Estimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return Estimate{
		Duration:     leg.Duration,
		DurationText: humanDuration(leg.Duration),
		DistanceText: leg.Distance.HumanReadable,
	}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// humanDuration renders whole minutes, e.g. "9 mins" or "1 hour 5 mins".
func humanDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	h, m := mins/60, mins%60
	switch {
	case h == 0:
		return plural(m, "min")
	case m == 0:
		return plural(h, "hour")
	default:
		return plural(h, "hour") + " " + plural(m, "min")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
