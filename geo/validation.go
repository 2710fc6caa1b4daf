// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"fmt"
	"strings"

	"github.com/painelmultas/painel/spatial"
)

// Brazil's bounding box with about a degree of margin. It overlaps every
// neighbouring country, so it only catches answers that are far off.
const (
	brazilMinLat = -35.0
	brazilMaxLat = 6.5
	brazilMinLng = -75.0
	brazilMaxLng = -33.5
)

// ValidateCoordinates checks that a point is on Earth and near Brazil.
func ValidateCoordinates(p spatial.Point) error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	if p.Lat < brazilMinLat || p.Lat > brazilMaxLat {
		return fmt.Errorf("latitude outside Brazil (%.1f to %.1f): %f", brazilMinLat, brazilMaxLat, p.Lat)
	}

	if p.Lng < brazilMinLng || p.Lng > brazilMaxLng {
		return fmt.Errorf("longitude outside Brazil (%.1f to %.1f): %f", brazilMinLng, brazilMaxLng, p.Lng)
	}

	return nil
}

// brazil is the ISO 3166-1 alpha-2 code every accepted result must carry.
const brazil = "BR"

// ValidateResult checks the country reported by the provider and then the
// coordinates. A result without a country is rejected.
func ValidateResult(res *GeocodingResult) error {
	if res.CountryCode == "" {
		return fmt.Errorf("%s did not report the country of %q", res.Provider, res.DisplayName)
	}

	if !strings.EqualFold(res.CountryCode, brazil) {
		return fmt.Errorf("%s matched a place outside Brazil (%s): %q",
			res.Provider, strings.ToUpper(res.CountryCode), res.DisplayName)
	}

	return ValidateCoordinates(res.Point)
}
