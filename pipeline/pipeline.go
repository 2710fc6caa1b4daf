// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline wires fetching, normalization, storage and
// reconciliation together.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/painelmultas/painel/fetch"
	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/planilha"
	"github.com/painelmultas/painel/store"
)

// Metrics summarizes one ingestion.
type Metrics struct {
	Rows        int
	Records     int
	Rejected    int
	Diagnostics int
}

// Merge adds other into m.
func (m *Metrics) Merge(other *Metrics) {
	m.Rows += other.Rows
	m.Records += other.Records
	m.Rejected += other.Rejected
	m.Diagnostics += other.Diagnostics
}

// Pipeline ingests spreadsheets into the store and derives the canonical
// set from the stored history.
type Pipeline struct {
	fetcher fetch.Fetcher
	repo    store.RecordRepository
	layout  *planilha.Layout
	reader  planilha.ReaderOptions
}

// New creates a pipeline. fetcher may be nil for read-only use.
func New(fetcher fetch.Fetcher, repo store.RecordRepository, layout *planilha.Layout, reader planilha.ReaderOptions) *Pipeline {
	return &Pipeline{fetcher: fetcher, repo: repo, layout: layout, reader: reader}
}

// Read fetches id and normalizes its rows without storing anything.
func (p *Pipeline) Read(ctx context.Context, id string) (*multas.Batch, int, error) {
	if p.fetcher == nil {
		return nil, 0, fmt.Errorf("no fetcher configured to read %s", id)
	}

	f, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	opts := p.reader
	if opts.Format == planilha.FormatAuto {
		opts.Format = planilha.FormatFromName(f.Name)
	}

	rows, err := planilha.ReadRows(f, p.layout, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", f.Name, err)
	}

	return multas.NormalizeRows(p.layout, rows), len(rows), nil
}

// Ingest reads id and replaces whatever was stored for it before.
func (p *Pipeline) Ingest(ctx context.Context, id string) (*Metrics, error) {
	batch, n, err := p.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.repo.SaveBatch(id, batch); err != nil {
		return nil, fmt.Errorf("storing %s: %w", id, err)
	}

	m := &Metrics{
		Rows:        n,
		Records:     len(batch.Records),
		Rejected:    len(batch.Rejected),
		Diagnostics: len(batch.Diagnostics),
	}

	log.Printf("📥 %s: %d rows, %d records, %d rejected, %d diagnostics",
		id, m.Rows, m.Records, m.Rejected, m.Diagnostics)

	return m, nil
}

// Canonical reconciles the whole stored history. It fails with
// multas.ErrNoValidSnapshot when nothing usable was ingested yet.
func (p *Pipeline) Canonical() (multas.CanonicalSet, error) {
	records, err := p.repo.LoadRecords()
	if err != nil {
		return multas.CanonicalSet{}, fmt.Errorf("loading records: %w", err)
	}

	return multas.Reconcile(records)
}
