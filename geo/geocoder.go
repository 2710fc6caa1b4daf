// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package geo turns free-text infraction locations into coordinates, with a
// durable cache in front of the geocoding providers.
package geo

import (
	"context"

	"github.com/painelmultas/painel/spatial"
)

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Point       spatial.Point
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
	// CountryCode is the ISO 3166-1 alpha-2 code of the matched place, as
	// reported by the provider.
	CountryCode string
}

// Geocoder is a text-in, coordinates-out provider. Implementations return a
// *GeocodingError when nothing usable came back.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*GeocodingResult, error)
}

// GeocoderFunc adapts a function to Geocoder.
type GeocoderFunc func(ctx context.Context, query string) (*GeocodingResult, error)

// Geocode implements Geocoder.
func (f GeocoderFunc) Geocode(ctx context.Context, query string) (*GeocodingResult, error) {
	return f(ctx, query)
}
