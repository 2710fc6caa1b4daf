// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/painelmultas/painel/spatial"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"googlemaps.github.io/maps"
)

const googleProvider = "google_maps"

// GoogleMapsGeocoder uses the Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	client *maps.Client
	region string
}

// NewGoogleMapsGeocoder creates a geocoder biased to Brazil. baseURL is only
// set by tests.
func NewGoogleMapsGeocoder(apiKey string, httpClient *http.Client, baseURL string) (*GoogleMapsGeocoder, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}

	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating google maps client: %w", err)
	}

	return &GoogleMapsGeocoder{client: client, region: "br"}, nil
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, query string) (*GeocodingResult, error) {
	// Region only biases the ranking; the component filter restricts it.
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:    query,
		Region:     g.region,
		Components: map[maps.Component]string{maps.ComponentCountry: strings.ToUpper(g.region)},
		Language:   "pt-BR",
	})
	if err != nil {
		return nil, classifyMapsError(err)
	}

	if len(results) == 0 {
		return nil, notFound(googleProvider, query)
	}

	result := results[0]

	// Intersections come back as RANGE_INTERPOLATED or GEOMETRIC_CENTER,
	// which is as good as it gets for a street corner.
	confidence := "low"

	switch result.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	}

	return &GeocodingResult{
		Point:       spatial.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
		Confidence:  confidence,
		Provider:    googleProvider,
		DisplayName: result.FormattedAddress,
		CountryCode: countryCode(result.AddressComponents),
	}, nil
}

func countryCode(components []maps.AddressComponent) string {
	for _, c := range components {
		if slices.Contains(c.Types, "country") {
			return c.ShortName
		}
	}

	return ""
}

// classifyMapsError maps the client's "maps: STATUS - message" errors.
func classifyMapsError(err error) *GeocodingError {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "OVER_DAILY_LIMIT"):
		return &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: googleProvider + ": quota exceeded", Err: err}
	case strings.Contains(msg, "REQUEST_DENIED"), strings.Contains(msg, "INVALID_REQUEST"):
		return &GeocodingError{Type: ErrorTypeInvalidRequest, Message: googleProvider + ": request rejected", Err: err}
	case strings.Contains(msg, "ZERO_RESULTS"), strings.Contains(msg, "NOT_FOUND"):
		return &GeocodingError{Type: ErrorTypeNotFound, Message: googleProvider + ": location not found", Err: err}
	default:
		return classifyTransportError(err, googleProvider)
	}
}

// MapsKeyDisplayName is the display name of the API key looked up through
// Application Default Credentials.
const MapsKeyDisplayName = "Painel Multas Geocoding Key"

// APIKeyFromADC finds the Maps key of the ADC project by display name and
// returns its secret. projectID overrides the credentials' project.
func APIKeyFromADC(ctx context.Context, projectID string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	if projectID == "" {
		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project id in the default credentials; set google.project in the config")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.GetDisplayName() != MapsKeyDisplayName {
			continue
		}

		// ListKeys redacts the secret.
		log.Printf("Found key resource '%s', retrieving secret...", key.GetName())

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.GetName()})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.GetKeyString() == "" {
			return "", fmt.Errorf("key '%s' has an empty key string", MapsKeyDisplayName)
		}

		return resp.GetKeyString(), nil
	}

	return "", fmt.Errorf("no API key named '%s' in project %s", MapsKeyDisplayName, projectID)
}
