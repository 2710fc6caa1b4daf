// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/painelmultas/painel/config"
	"github.com/painelmultas/painel/fetch"
	"github.com/painelmultas/painel/geo"
	"github.com/painelmultas/painel/pipeline"
	"github.com/painelmultas/painel/store"
	"github.com/painelmultas/painel/utils/httputils"
)

func traceWriter() io.Writer {
	if rootOptions.TraceHTTP {
		return os.Stderr
	}

	return nil
}

func httpClient(timeout time.Duration) *http.Client {
	return httputils.NewClient(httputils.ClientOptions{Timeout: timeout, Trace: traceWriter()})
}

// openRepository opens the DuckDB file of the data directory, creating it
// when create is set.
func openRepository(cfg *config.Config, create bool) (*sql.DB, store.RecordRepository, error) {
	dbpath := cfg.DBPath()

	if create {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
	} else if _, err := os.Stat(dbpath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("database not found at %s - run 'painel ingest' first", dbpath)
	}

	db, err := sql.Open("duckdb", dbpath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := store.NewSQLRecordRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, repo, nil
}

func newFetcher(ctx context.Context, cfg *config.Config) (fetch.Fetcher, error) {
	switch cfg.Source.Kind {
	case config.SourceLocal:
		return fetch.LocalFetcher{Root: cfg.Source.Root}, nil
	default:
		opts := fetch.DriveOptions{CredentialsFile: cfg.Source.CredentialsFile}
		if rootOptions.TraceHTTP {
			opts.Transport = &httputils.LoggingRoundTripper{Transport: http.DefaultTransport, Writer: os.Stderr}
		}

		return fetch.NewDriveFetcher(ctx, opts)
	}
}

// newPipeline wires a pipeline; with withFetcher unset it can only
// reconcile what is already stored.
func newPipeline(ctx context.Context, cfg *config.Config, repo store.RecordRepository, withFetcher bool) (*pipeline.Pipeline, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}

	var fetcher fetch.Fetcher
	if withFetcher {
		if fetcher, err = newFetcher(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return pipeline.New(fetcher, repo, layout, cfg.ReaderOptions()), nil
}

// newGeocoder returns nil for the "none" provider.
func newGeocoder(ctx context.Context, cfg *config.Config) (geo.Geocoder, error) {
	client := httpClient(cfg.Geocoding.Timeout)

	switch cfg.Geocoding.Provider {
	case config.ProviderOpenCage:
		if cfg.Geocoding.OpenCageKey == "" {
			return nil, errors.New("OPENCAGE_API_KEY is not set")
		}

		log.Println("📍 Geocoding: OpenCage")

		return geo.NewOpenCageGeocoder(cfg.Geocoding.OpenCageKey, client), nil
	case config.ProviderGoogle:
		apiKey := cfg.Geocoding.GoogleKey
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = geo.APIKeyFromADC(ctx, cfg.Geocoding.GoogleProject)
			if err != nil {
				return nil, fmt.Errorf("retrieving maps key via ADC: %w", err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		g, err := geo.NewGoogleMapsGeocoder(apiKey, client, "")
		if err != nil {
			return nil, err
		}

		log.Println("📍 Geocoding: Google Maps")

		return g, nil
	default:
		return nil, nil
	}
}

// newResolver opens the cache; with lookups unset the resolver never calls
// a provider.
func newResolver(ctx context.Context, cfg *config.Config, lookups bool) (*geo.Resolver, error) {
	var geocoder geo.Geocoder

	if lookups {
		var err error
		if geocoder, err = newGeocoder(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return geo.NewResolver(geo.OpenCache(cfg.CachePath()), geocoder, geo.ResolverOptions{
		Timeout:       cfg.Geocoding.Timeout,
		FlushInterval: cfg.Geocoding.FlushInterval,
		Workers:       cfg.Geocoding.Workers,
	}), nil
}
