// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCageGeocoder(t *testing.T) {
	var gotQuery, gotKey, gotCountry string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		gotCountry = r.URL.Query().Get("countrycode")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{
				"geometry": {"lat": -22.9068, "lng": -43.1729},
				"components": {"country": "Brasil", "country_code": "br"},
				"formatted": "Rio de Janeiro, Brasil",
				"confidence": 9
			}],
			"status": {"code": 200, "message": "OK"}
		}`))
	}))
	defer srv.Close()

	g := NewOpenCageGeocoder("k3y", srv.Client(), WithOpenCageURL(srv.URL))

	res, err := g.Geocode(context.Background(), "Rio de Janeiro")
	require.NoError(t, err)

	assert.Equal(t, "Rio de Janeiro", gotQuery)
	assert.Equal(t, "k3y", gotKey)
	assert.Equal(t, "br", gotCountry)

	assert.Equal(t, rio, res.Point)
	assert.Equal(t, "high", res.Confidence)
	assert.Equal(t, "opencage", res.Provider)
	assert.Equal(t, "Rio de Janeiro, Brasil", res.DisplayName)
	assert.Equal(t, "br", res.CountryCode)
	assert.NoError(t, ValidateResult(res))
}

func TestOpenCageGeocoder_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"empty results", http.StatusOK, `{"results": [], "status": {"code": 200}}`, ErrorTypeNotFound},
		{"null geometry", http.StatusOK, `{"results": [{"geometry": {"lat": null, "lng": null}}]}`, ErrorTypeNotFound},
		{"malformed", http.StatusOK, `<html>`, ErrorTypeUnknown},
		{"free tier exhausted", http.StatusPaymentRequired, `{}`, ErrorTypeQuotaExceeded},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrorTypeRateLimit},
		{"bad key", http.StatusUnauthorized, `{}`, ErrorTypeInvalidRequest},
		{"server error", http.StatusInternalServerError, `{}`, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewOpenCageGeocoder("k3y", srv.Client(), WithOpenCageURL(srv.URL))

			res, err := g.Geocode(context.Background(), "Lugar Nenhum")
			assert.Nil(t, res)

			var geoErr *GeocodingError
			require.ErrorAs(t, err, &geoErr)
			assert.Equal(t, tt.wantType, geoErr.Type)
		})
	}
}

func TestOpenCageGeocoder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewOpenCageGeocoder("k3y", nil, WithOpenCageURL(url), WithCountryCode(""))

	_, err := g.Geocode(context.Background(), "Rio de Janeiro")

	var geoErr *GeocodingError
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, ErrorTypeNetworkError, geoErr.Type)
}

func TestOpenCageConfidence(t *testing.T) {
	assert.Equal(t, "high", openCageConfidence(10))
	assert.Equal(t, "medium", openCageConfidence(5))
	assert.Equal(t, "low", openCageConfidence(1))
}
