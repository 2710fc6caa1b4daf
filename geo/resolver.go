// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/painelmultas/painel/spatial"
	"github.com/painelmultas/painel/utils/textutils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second
	// DefaultFlushInterval is the minimum time between automatic saves.
	DefaultFlushInterval = 30 * time.Second
	// DefaultWorkers is the ResolveAll fan-out.
	DefaultWorkers = 4
)

var (
	errNoGeocoder    = errors.New("no geocoder configured")
	errEmptyLocation = errors.New("empty location")
)

// ResolverOptions tunes a Resolver. Zero values pick the defaults.
type ResolverOptions struct {
	Timeout       time.Duration
	FlushInterval time.Duration
	Workers       int
	// Now is the clock used by the flush throttle.
	Now func() time.Time
}

// Stats counts what the resolver did since it was created.
type Stats struct {
	Hits     int64 `json:"hits"`
	Lookups  int64 `json:"lookups"`
	Failures int64 `json:"failures"`
}

// Resolver maps location text to coordinates. The cache is always consulted
// first; on a miss exactly one provider call is made per key, even with
// concurrent callers. Failures are never cached so they are retried later.
type Resolver struct {
	cache    *Cache
	geocoder Geocoder
	opts     ResolverOptions

	group singleflight.Group

	flushMu   sync.Mutex
	lastFlush time.Time

	hits, lookups, failures atomic.Int64
}

// NewResolver creates a resolver. geocoder may be nil, in which case only
// cached locations resolve.
func NewResolver(cache *Cache, geocoder Geocoder, opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}

	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Resolver{cache: cache, geocoder: geocoder, opts: opts}
}

// Key is the cache key of a location: lowercase, no diacritics, trimmed and
// with inner whitespace collapsed.
func Key(location string) string {
	return textutils.FoldKey(location)
}

// Cached returns the coordinates of location only if they are already known.
func (r *Resolver) Cached(location string) (spatial.Point, bool) {
	key := Key(location)
	if key == "" {
		return spatial.Point{}, false
	}

	return r.cache.Get(key)
}

// Resolve returns the coordinates of location. ok is false when the
// location is empty or the provider failed; the failure is logged.
func (r *Resolver) Resolve(ctx context.Context, location string) (spatial.Point, bool) {
	p, err := r.resolve(ctx, location)

	return p, err == nil
}

func (r *Resolver) resolve(ctx context.Context, location string) (spatial.Point, error) {
	key := Key(location)
	if key == "" {
		return spatial.Point{}, errEmptyLocation
	}

	if p, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		return p, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// A flight for this key may have just landed.
		if p, ok := r.cache.Get(key); ok {
			return p, nil
		}

		return r.lookup(ctx, key, location)
	})
	if err != nil {
		r.failures.Add(1)
		logFailure(location, err)

		return spatial.Point{}, err
	}

	r.maybeFlush()

	return v.(spatial.Point), nil
}

func logFailure(location string, err error) {
	switch {
	case IsNotFoundError(err):
		log.Printf("📭 No match for %q: %v", location, err)
	case IsRateLimitError(err), IsTimeoutError(err):
		log.Printf("⏳ Provider slow or throttled for %q, will retry next run: %v", location, err)
	case IsQuotaExceededError(err):
		log.Printf("🛑 Provider quota exhausted at %q: %v", location, err)
	default:
		log.Printf("⚠️ Could not geocode %q: %v", location, err)
	}
}

func (r *Resolver) lookup(ctx context.Context, key, location string) (spatial.Point, error) {
	if r.geocoder == nil {
		return spatial.Point{}, errNoGeocoder
	}

	r.lookups.Add(1)

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	res, err := r.geocoder.Geocode(ctx, location)
	if err != nil {
		return spatial.Point{}, err
	}

	if err := ValidateResult(res); err != nil {
		return spatial.Point{}, &GeocodingError{Type: ErrorTypeNotFound, Message: location, Err: err}
	}

	r.cache.Put(key, res.Point)

	return res.Point, nil
}

// maybeFlush saves the cache unless it was saved less than FlushInterval ago.
func (r *Resolver) maybeFlush() {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	now := r.opts.Now()
	if !r.lastFlush.IsZero() && now.Sub(r.lastFlush) < r.opts.FlushInterval {
		return
	}

	if !r.cache.Dirty() {
		return
	}

	r.lastFlush = now

	if err := r.cache.Save(); err != nil {
		log.Printf("⚠️ Saving geocode cache: %v", err)
	}
}

// Flush saves pending entries now, ignoring the throttle.
func (r *Resolver) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.lastFlush = r.opts.Now()

	return r.cache.Save()
}

// Stats returns the counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Hits:     r.hits.Load(),
		Lookups:  r.lookups.Load(),
		Failures: r.failures.Load(),
	}
}

// ResolveAll resolves every location with a bounded number of workers and
// flushes the cache at the end. The result holds only the locations that
// resolved, keyed by the input text. progress, when not nil, is called
// once per location attempted.
//
// An exhausted provider quota stops the batch: the error is returned along
// with whatever resolved before it.
func (r *Resolver) ResolveAll(ctx context.Context, locations []string, progress func()) (map[string]spatial.Point, error) {
	var mu sync.Mutex

	ret := make(map[string]spatial.Point, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for _, location := range locations {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			p, err := r.resolve(gctx, location)
			if err == nil {
				mu.Lock()
				ret[location] = p
				mu.Unlock()
			}

			if progress != nil {
				progress()
			}

			if err != nil && IsQuotaExceededError(err) {
				return fmt.Errorf("geocoding stopped at %q: %w", location, err)
			}

			return nil
		})
	}

	err := g.Wait()

	if ferr := r.Flush(); ferr != nil {
		log.Printf("⚠️ Saving geocode cache: %v", ferr)
	}

	return ret, err
}
