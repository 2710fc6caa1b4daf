// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the canonical fines, their indicators and the
// dashboard series as a JSON API. Presentation is left to the client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/painelmultas/painel/geo"
	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/spatial"
	"github.com/painelmultas/painel/store"
)

const (
	defaultTop  = 10
	shutdownTTL = 5 * time.Second
)

// Snapshots yields the reconciled view of everything ingested so far.
type Snapshots interface {
	Canonical() (multas.CanonicalSet, error)
}

type Server struct {
	snapshots Snapshots
	repo      store.RecordRepository
	resolver  *geo.Resolver
	now       func() time.Time
}

// New builds a server. resolver may be nil, in which case the map has no
// points. The map only reads cached coordinates; filling the cache is the
// job of the geocode command.
func New(snapshots Snapshots, repo store.RecordRepository, resolver *geo.Resolver) *Server {
	return &Server{
		snapshots: snapshots,
		repo:      repo,
		resolver:  resolver,
		now:       time.Now,
	}
}

// Router registers every route on a fresh engine.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.GET("/indicadores", s.indicators)
	api.GET("/registros", s.records)
	api.GET("/limites", s.bounds)
	api.GET("/rejeicoes", s.rejections)
	api.GET("/ingestoes", s.ingestions)
	api.GET("/graficos/infracoes", s.topInfractions)
	api.GET("/graficos/semana", s.weekdays)
	api.GET("/graficos/veiculos", s.topVehicles)
	api.GET("/graficos/mensal", s.monthly)
	api.GET("/mapa", s.mapPoints)

	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		log.Printf("🌐 Servindo em http://%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTTL)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// query holds the parsed dashboard filter.
type query struct {
	rng    *multas.DateRange
	codes  []string
	plates []string
	period multas.Period
}

// filter applies codes, plates and, when withRange is set, the date range.
func (q *query) filter(withRange bool) multas.Filter {
	f := multas.Filter{Codes: q.codes, Plates: q.plates}
	if withRange {
		f.Range = q.rng
	}

	return f
}

// splitValues accepts both repeated parameters and comma separated lists.
func splitValues(values []string) []string {
	var out []string

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func (s *Server) parseQuery(c *gin.Context, set multas.CanonicalSet) (*query, error) {
	q := &query{
		codes:  splitValues(c.QueryArray("codigo")),
		plates: splitValues(c.QueryArray("placa")),
		period: multas.PeriodOf(s.now()),
	}

	from, to := c.Query("inicio"), c.Query("fim")
	if from != "" || to != "" {
		// A missing side is taken from the data, like the date pickers do.
		bounds, ok := set.Bounds()
		if !ok {
			bounds = multas.DateRange{From: s.now(), To: s.now()}
		}

		var err error

		if from != "" {
			if bounds.From, err = multas.ParseDay(from); err != nil {
				return nil, err
			}
		}

		if to != "" {
			if bounds.To, err = multas.ParseDay(to); err != nil {
				return nil, err
			}
		}

		rng, err := multas.NewDateRange(bounds.From, bounds.To)
		if err != nil {
			return nil, err
		}

		q.rng = &rng
	}

	if v := c.Query("ano"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 {
			return nil, fmt.Errorf("invalid year %q", v)
		}

		q.period = multas.Period{Year: year}
	}

	if v := c.Query("mes"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("invalid month %q", v)
		}

		q.period.Month = time.Month(month)
	}

	return q, nil
}

func intParam(c *gin.Context, name string, def, lo, hi int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s %q, expected %d..%d", name, v, lo, hi)
	}

	return n, nil
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// load reconciles and parses the request. It writes the error response
// itself and returns ok=false.
func (s *Server) load(c *gin.Context) (multas.CanonicalSet, *query, bool) {
	set, err := s.snapshots.Canonical()
	if errors.Is(err, multas.ErrNoValidSnapshot) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return set, nil, false
	}

	if err != nil {
		log.Printf("❌ Error loading canonical set: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})

		return set, nil, false
	}

	q, err := s.parseQuery(c, set)
	if err != nil {
		badRequest(c, err)

		return set, nil, false
	}

	return set, q, true
}

func (s *Server) indicators(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	// The range only bounds the totals; the period cards use the year and
	// month of the whole filtered set.
	ind := multas.Aggregate(q.filter(false).Apply(set), q.rng, q.period)

	c.JSON(http.StatusOK, ind.Values())
}

func (s *Server) records(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	filtered := q.filter(true).Apply(set)

	c.JSON(http.StatusOK, gin.H{
		"snapshot_date": set.Date(),
		"count":         filtered.Len(),
		"records":       filtered.Records(),
	})
}

func (s *Server) bounds(c *gin.Context) {
	set, _, ok := s.load(c)
	if !ok {
		return
	}

	rng, found := set.Bounds()
	if !found {
		c.JSON(http.StatusOK, gin.H{"inicio": nil, "fim": nil})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inicio": rng.From.Format(time.DateOnly),
		"fim":    rng.To.Format(time.DateOnly),
	})
}

func (s *Server) rejections(c *gin.Context) {
	source := c.Query("fonte")

	rejected, err := s.repo.Rejections(source)
	if err != nil {
		log.Printf("❌ Error listing rejections: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rejections"})

		return
	}

	diags, err := s.repo.Diagnostics(source)
	if err != nil {
		log.Printf("❌ Error listing diagnostics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list diagnostics"})

		return
	}

	c.JSON(http.StatusOK, gin.H{"rejections": nonNil(rejected), "diagnostics": nonNil(diags)})
}

func (s *Server) ingestions(c *gin.Context) {
	list, err := s.repo.Ingestions()
	if err != nil {
		log.Printf("❌ Error listing ingestions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ingestions"})

		return
	}

	c.JSON(http.StatusOK, nonNil(list))
}

func (s *Server) topInfractions(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	n, err := intParam(c, "n", defaultTop, 1, 1000)
	if err != nil {
		badRequest(c, err)

		return
	}

	c.JSON(http.StatusOK, nonNil(multas.TopInfractions(q.filter(true).Apply(set), n)))
}

func (s *Server) weekdays(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, multas.ByWeekday(q.filter(true).Apply(set)))
}

func (s *Server) topVehicles(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	n, err := intParam(c, "n", defaultTop, 1, 1000)
	if err != nil {
		badRequest(c, err)

		return
	}

	c.JSON(http.StatusOK, nonNil(multas.TopVehicles(q.filter(true).Apply(set), q.period.Year, n)))
}

func (s *Server) monthly(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, multas.MonthlySeries(q.filter(true).Apply(set), q.period.Year))
}

func (s *Server) mapPoints(c *gin.Context) {
	set, q, ok := s.load(c)
	if !ok {
		return
	}

	res, err := intParam(c, "res", -1, 0, 15)
	if err != nil {
		badRequest(c, err)

		return
	}

	resolve := func(string) (spatial.Point, bool) { return spatial.Point{}, false }
	if s.resolver != nil {
		resolve = s.resolver.Cached
	}

	points := nonNil(multas.MapPoints(q.filter(true).Apply(set), resolve))

	coords := make([]spatial.Point, len(points))
	for i, p := range points {
		coords[i] = p.Point
	}

	resp := gin.H{
		"center": spatial.Centroid(coords, spatial.RioDeJaneiro),
		"points": points,
	}

	if res >= 0 {
		cells, err := geo.HeatCells(points, res)
		if err != nil {
			badRequest(c, err)

			return
		}

		resp["cells"] = nonNil(cells)
	}

	c.JSON(http.StatusOK, resp)
}
