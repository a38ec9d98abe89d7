// Package resolver turns postal codes into coordinates. Resolution is an
// ordered strategy chain: the live geocoder first, then the static FSA
// centroid tables. A strategy that errors or abstains hands off to the next;
// only a fully exhausted chain reports ErrNotFound.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/clients/arcgis"
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/geo"
)

var (
	// ErrInvalidPostalCode means the input is not a Canadian postal code.
	ErrInvalidPostalCode = errors.New("resolver: invalid postal code")
	// ErrUnsupportedCity means the postal code is valid but outside the
	// supported municipalities.
	ErrUnsupportedCity = errors.New("resolver: unsupported city")
	// ErrNotFound means every resolution strategy was exhausted.
	ErrNotFound = errors.New("resolver: postal code could not be resolved")
)

// Canadian postal codes alternate letter and digit; D, F, I, O, Q and U
// never appear but upstreams accept them, so we validate shape only.
var postalCodePattern = regexp.MustCompile(`^[A-Z][0-9][A-Z][0-9][A-Z][0-9]$`)

// Location is a resolved postal code.
type Location struct {
	PostalCode string    `json:"postalCode"`
	City       city.City `json:"-"`
	CityTag    string    `json:"city"`
	Point      geo.Point `json:"point"`
	Street     string    `json:"street,omitempty"`
	Source     string    `json:"source"`
}

// Geocoder is the slice of the ArcGIS client the resolver needs.
type Geocoder interface {
	Geocode(ctx context.Context, singleLine string) (*arcgis.Candidate, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

// Strategy is one way of turning a postal code into a point. Returning
// (nil, nil) abstains without ending the chain.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, postalCode string, c city.City) (*geo.Point, error)
}

// Resolver runs the strategy chain.
type Resolver struct {
	strategies []Strategy
	geocoder   Geocoder
}

// New builds the standard chain: geocoder first, FSA table fallback.
func New(geocoder Geocoder) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			&geocoderStrategy{geocoder: geocoder},
			&fsaStrategy{},
		},
		geocoder: geocoder,
	}
}

// NewWithStrategies builds a resolver over a custom chain.
func NewWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// NormalizePostalCode upcases and strips the space, validating the shape.
func NormalizePostalCode(raw string) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if !postalCodePattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPostalCode, raw)
	}
	return normalized, nil
}

// Resolve validates the postal code, infers the city, and walks the chain.
func (r *Resolver) Resolve(ctx context.Context, rawPostalCode string) (*Location, error) {
	normalized, err := NormalizePostalCode(rawPostalCode)
	if err != nil {
		return nil, err
	}

	resolvedCity, err := city.FromPostalCode(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCity, normalized)
	}

	for _, strategy := range r.strategies {
		point, err := strategy.Resolve(ctx, normalized, resolvedCity)
		if err != nil {
			logging.Warnw(ctx, "resolver: strategy failed, trying next",
				"strategy", strategy.Name(), "postal_code", normalized, "error", err)
			continue
		}
		if point == nil {
			continue
		}
		location := &Location{
			PostalCode: normalized,
			City:       resolvedCity,
			CityTag:    resolvedCity.String(),
			Point:      *point,
			Source:     strategy.Name(),
		}
		if r.geocoder != nil {
			location.Street = r.geocoder.ReverseGeocode(ctx, point.Latitude, point.Longitude)
		}
		return location, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, normalized)
}

// geocoderStrategy asks the live geocoder for the postal code's centroid.
type geocoderStrategy struct {
	geocoder Geocoder
}

func (s *geocoderStrategy) Name() string { return "geocoder" }

func (s *geocoderStrategy) Resolve(ctx context.Context, postalCode string, c city.City) (*geo.Point, error) {
	query := fmt.Sprintf("%s %s, %s, QC, Canada", postalCode[:3], postalCode[3:], displayName(c))
	candidate, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}
	point, err := geo.NewPoint(candidate.Location.Y, candidate.Location.X)
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// fsaStrategy falls back to the static centroid tables.
type fsaStrategy struct{}

func (s *fsaStrategy) Name() string { return "fsa" }

func (s *fsaStrategy) Resolve(ctx context.Context, postalCode string, c city.City) (*geo.Point, error) {
	point, ok := fsaCentroid(c, postalCode)
	if !ok {
		return nil, nil
	}
	return &point, nil
}

func displayName(c city.City) string {
	switch c {
	case city.Montreal:
		return "Montreal"
	case city.Quebec:
		return "Quebec City"
	default:
		return ""
	}
}
