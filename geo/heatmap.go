// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/spatial"
	"github.com/shopspring/decimal"
	"github.com/uber/h3-go/v4"
)

// HeatCell aggregates the map points falling in one H3 cell.
type HeatCell struct {
	Cell   string          `json:"cell"`
	Center spatial.Point   `json:"center"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
	// Intensity is Count relative to the busiest cell, in (0, 1].
	Intensity float64 `json:"intensity"`
}

// HeatCells buckets points into H3 cells of the given resolution (0-15),
// busiest cell first.
func HeatCells(points []multas.MapPoint, resolution int) ([]HeatCell, error) {
	index := make(map[h3.Cell]int)

	var out []HeatCell

	for _, p := range points {
		cell, err := h3.LatLngToCell(h3.NewLatLng(p.Point.Lat, p.Point.Lng), resolution)
		if err != nil {
			return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", resolution, err)
		}

		i, ok := index[cell]
		if !ok {
			center, err := h3.CellToLatLng(cell)
			if err != nil {
				return nil, fmt.Errorf("computing center of %s: %w", cell, err)
			}

			i = len(out)
			index[cell] = i
			out = append(out, HeatCell{
				Cell:   cell.String(),
				Center: spatial.Point{Lat: center.Lat, Lng: center.Lng},
				Amount: decimal.Zero,
			})
		}

		out[i].Count++
		out[i].Amount = out[i].Amount.Add(p.Amount)
	}

	maxCount := 0
	for _, c := range out {
		maxCount = max(maxCount, c.Count)
	}

	for i := range out {
		out[i].Intensity = float64(out[i].Count) / float64(maxCount)
	}

	slices.SortStableFunc(out, func(a, b HeatCell) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Cell, b.Cell)
	})

	return out, nil
}
