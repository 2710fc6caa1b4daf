// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"cmp"
	"slices"
	"time"

	"github.com/painelmultas/painel/spatial"
	"github.com/shopspring/decimal"
)

// InfractionCount is a bar of the "most common infractions" chart.
type InfractionCount struct {
	Description string `json:"description"`
	Code        string `json:"code"`
	Count       int    `json:"count"`
}

// TopInfractions groups records by description. The code shown is the
// first one seen for that description. Ties keep description order.
func TopInfractions(set CanonicalSet, n int) []InfractionCount {
	index := make(map[string]int)

	var out []InfractionCount

	for _, r := range set.records {
		if r.Description == "" {
			continue
		}

		i, ok := index[r.Description]
		if !ok {
			i = len(out)
			index[r.Description] = i
			out = append(out, InfractionCount{Description: r.Description, Code: r.InfractionCode})
		}

		out[i].Count++
	}

	slices.SortStableFunc(out, func(a, b InfractionCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Description, b.Description)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}

	return out
}

// WeekdayCount is a bar of the weekday histogram.
type WeekdayCount struct {
	Weekday time.Weekday `json:"weekday"`
	Count   int          `json:"count"`
}

// ByWeekday counts records per weekday of the infraction, Monday first.
// Records without a date are skipped.
func ByWeekday(set CanonicalSet) []WeekdayCount {
	var counts [7]int

	for _, r := range set.records {
		if r.InfractionDate.IsZero() {
			continue
		}

		counts[r.InfractionDate.In(Timezone).Weekday()]++
	}

	out := make([]WeekdayCount, 0, 7)
	for i := range 7 {
		wd := time.Weekday((i + 1) % 7)
		out = append(out, WeekdayCount{Weekday: wd, Count: counts[wd]})
	}

	return out
}

// VehicleFines is a bar of the "vehicles with most fines" chart.
type VehicleFines struct {
	Plate  string          `json:"plate"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// TopVehicles ranks plates by distinct fines in the given year, counting each
// infraction id once.
func TopVehicles(set CanonicalSet, year, n int) []VehicleFines {
	p := Period{Year: year}
	seen := make(map[string]struct{})
	index := make(map[string]int)

	var out []VehicleFines

	for _, r := range set.records {
		if r.Plate == "" || !p.containsYear(r.InfractionDate) {
			continue
		}

		if _, dup := seen[r.InfractionID]; dup {
			continue
		}

		seen[r.InfractionID] = struct{}{}

		i, ok := index[r.Plate]
		if !ok {
			i = len(out)
			index[r.Plate] = i
			out = append(out, VehicleFines{Plate: r.Plate, Amount: decimal.Zero})
		}

		out[i].Count++
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}

	slices.SortStableFunc(out, func(a, b VehicleFines) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}

		return cmp.Compare(a.Plate, b.Plate)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}

	return out
}

// MonthlyPoint is a point of the accumulated fines series.
type MonthlyPoint struct {
	Month  time.Month      `json:"month"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlySeries returns twelve points for the year, empty months included.
func MonthlySeries(set CanonicalSet, year int) []MonthlyPoint {
	var tallies [12]*tally
	for i := range tallies {
		tallies[i] = newTally()
	}

	p := Period{Year: year}

	for i := range set.records {
		r := &set.records[i]
		if !p.containsYear(r.InfractionDate) {
			continue
		}

		tallies[r.InfractionDate.In(Timezone).Month()-1].add(r)
	}

	out := make([]MonthlyPoint, 12)
	for i, t := range tallies {
		out[i] = MonthlyPoint{Month: time.Month(i + 1), Count: len(t.ids), Amount: t.amount}
	}

	return out
}

// MapPoint is a marker of the fines map.
type MapPoint struct {
	InfractionID   string          `json:"infraction_id"`
	Location       string          `json:"location"`
	Point          spatial.Point   `json:"point"`
	Amount         decimal.Decimal `json:"amount"`
	InfractionDate *time.Time      `json:"infraction_date"`
}

// MapPoints places every record whose location resolves. Records whose
// location does not resolve are left out of the map, not failed.
func MapPoints(set CanonicalSet, resolve func(location string) (spatial.Point, bool)) []MapPoint {
	var out []MapPoint

	for _, r := range set.records {
		if r.Location == "" {
			continue
		}

		p, ok := resolve(r.Location)
		if !ok {
			continue
		}

		out = append(out, MapPoint{
			InfractionID:   r.InfractionID,
			Location:       r.Location,
			Point:          p,
			Amount:         r.Amount,
			InfractionDate: nullableTime(r.InfractionDate),
		})
	}

	return out
}

// Locations lists the distinct non-empty locations in first-seen order.
func Locations(set CanonicalSet) []string {
	seen := make(map[string]struct{})

	var out []string

	for _, r := range set.records {
		if r.Location == "" {
			continue
		}

		if _, ok := seen[r.Location]; ok {
			continue
		}

		seen[r.Location] = struct{}{}
		out = append(out, r.Location)
	}

	return out
}
