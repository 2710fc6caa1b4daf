// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/painelmultas/painel/spatial"
)

const (
	openCageProvider = "opencage"
	openCageURL      = "https://api.opencagedata.com/geocode/v1/json"
)

// OpenCageGeocoder uses the OpenCage forward geocoding API.
type OpenCageGeocoder struct {
	apiKey      string
	baseURL     string
	countryCode string
	httpClient  *http.Client
}

// OpenCageOption customizes an OpenCageGeocoder.
type OpenCageOption func(*OpenCageGeocoder)

// WithOpenCageURL points the geocoder at another endpoint.
func WithOpenCageURL(u string) OpenCageOption {
	return func(g *OpenCageGeocoder) { g.baseURL = u }
}

// WithCountryCode restricts results to an ISO 3166-1 country; "" disables it.
func WithCountryCode(cc string) OpenCageOption {
	return func(g *OpenCageGeocoder) { g.countryCode = cc }
}

// NewOpenCageGeocoder creates a geocoder. The client carries no timeout of
// its own; the resolver bounds every call through the context.
func NewOpenCageGeocoder(apiKey string, httpClient *http.Client, opts ...OpenCageOption) *OpenCageGeocoder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	g := &OpenCageGeocoder{
		apiKey:      apiKey,
		baseURL:     openCageURL,
		countryCode: "br",
		httpClient:  httpClient,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"geometry"`
		Components struct {
			CountryCode string `json:"country_code"`
		} `json:"components"`
		Formatted  string `json:"formatted"`
		Confidence int    `json:"confidence"` // 0..10, 10 being a bounding box under 250m
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Geocode implements Geocoder.
func (g *OpenCageGeocoder) Geocode(ctx context.Context, query string) (*GeocodingResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", g.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")
	params.Set("language", "pt-BR")

	if g.countryCode != "" {
		params.Set("countrycode", g.countryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, openCageProvider)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyHTTPError(resp.StatusCode, openCageProvider)
	}

	var ocResp openCageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding opencage response", Err: err}
	}

	for _, r := range ocResp.Results {
		if r.Geometry.Lat == nil || r.Geometry.Lng == nil {
			continue
		}

		return &GeocodingResult{
			Point:       spatial.Point{Lat: *r.Geometry.Lat, Lng: *r.Geometry.Lng},
			Confidence:  openCageConfidence(r.Confidence),
			Provider:    openCageProvider,
			DisplayName: r.Formatted,
			CountryCode: r.Components.CountryCode,
		}, nil
	}

	return nil, notFound(openCageProvider, query)
}

func openCageConfidence(c int) string {
	switch {
	case c >= 8:
		return "high"
	case c >= 5:
		return "medium"
	default:
		return "low"
	}
}

func (g *OpenCageGeocoder) String() string {
	return fmt.Sprintf("OpenCage(%s)", g.baseURL)
}
