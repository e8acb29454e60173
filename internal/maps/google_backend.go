package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridematch/internal/types"
)

// GoogleBackend handles interactions with the Google Maps APIs.
type GoogleBackend struct {
	client *maps.Client
}

// NewGoogleBackend creates a GoogleBackend with the given API Key.
func NewGoogleBackend(apiKey string) (*GoogleBackend, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleBackend{client: client}, nil
}

// DistanceMatrix returns driving legs for every origin/destination pair.
// Elements whose status is not OK come back as infeasible legs.
func (b *GoogleBackend) DistanceMatrix(ctx context.Context, origins, destinations []types.Point) (Matrix, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      pointStrings(origins),
		Destinations: pointStrings(destinations),
		Mode:         maps.TravelModeDriving,
	}

	resp, err := b.client.DistanceMatrix(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("distance matrix api error: %w", err)
	}
	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("distance matrix: got %d rows for %d origins", len(resp.Rows), len(origins))
	}

	out := make(Matrix, len(origins))
	for i, row := range resp.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf("distance matrix: row %d has %d elements for %d destinations", i, len(row.Elements), len(destinations))
		}
		out[i] = make([]Leg, len(destinations))
		for j, el := range row.Elements {
			if el == nil || el.Status != "OK" {
				continue
			}
			out[i][j] = Leg{Duration: el.Duration, DistanceMeters: el.Distance.Meters, Feasible: true}
		}
	}
	return out, nil
}

// Directions returns the first driving leg between two points.
func (b *GoogleBackend) Directions(ctx context.Context, from, to types.Point) (Leg, error) {
	r := &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := b.client.Directions(ctx, r)
	if err != nil {
		return Leg{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Leg{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return Leg{Duration: leg.Duration, DistanceMeters: leg.Distance.Meters, Feasible: true}, nil
}

// Geocode resolves a free-form address to its first match.
func (b *GoogleBackend) Geocode(ctx context.Context, address string) (types.Point, error) {
	results, err := b.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoRoute)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func pointStrings(points []types.Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.String()
	}
	return out
}
