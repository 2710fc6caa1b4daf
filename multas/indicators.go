// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// civil collapses a time to its calendar day as yyyymmdd.
func civil(t time.Time) int {
	y, m, d := t.In(Timezone).Date()

	return y*10000 + int(m)*100 + d
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange checks that from is not after to.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if civil(from) > civil(to) {
		return DateRange{}, fmt.Errorf("date range starts %s after it ends %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	return DateRange{From: from, To: to}, nil
}

// Contains reports whether t falls on a day of the range. The zero time is
// never contained.
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}

	day := civil(t)

	return day >= civil(r.From) && day <= civil(r.To)
}

// Period selects a calendar year and, when Month is not zero, a month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf is the period of t's year and month.
func PeriodOf(t time.Time) Period {
	t = t.In(Timezone)

	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) containsYear(t time.Time) bool {
	return !t.IsZero() && t.In(Timezone).Year() == p.Year
}

func (p Period) containsMonth(t time.Time) bool {
	return p.Month != 0 && p.containsYear(t) && t.In(Timezone).Month() == p.Month
}

// IndicatorSet holds the dashboard cards. Every metric is zero, never
// missing, on an empty input.
type IndicatorSet struct {
	SnapshotDate time.Time
	TotalCount   int
	TotalAmount  decimal.Decimal
	Period       Period
	YearCount    int
	YearAmount   decimal.Decimal
	MonthCount   int
	MonthAmount  decimal.Decimal
}

// Values exposes the indicators by name.
func (s IndicatorSet) Values() map[string]any {
	var snapshot any
	if !s.SnapshotDate.IsZero() {
		snapshot = s.SnapshotDate
	}

	return map[string]any{
		"snapshot_date": snapshot,
		"total_count":   s.TotalCount,
		"total_amount":  s.TotalAmount,
		"year":          s.Period.Year,
		"year_count":    s.YearCount,
		"year_amount":   s.YearAmount,
		"month":         int(s.Period.Month),
		"month_count":   s.MonthCount,
		"month_amount":  s.MonthAmount,
	}
}

// tally counts distinct ids and sums amounts.
type tally struct {
	ids    map[string]struct{}
	amount decimal.Decimal
}

func newTally() *tally {
	return &tally{ids: make(map[string]struct{}), amount: decimal.Zero}
}

func (t *tally) add(r *Record) {
	t.ids[r.InfractionID] = struct{}{}
	t.amount = t.amount.Add(r.Amount)
}

// Aggregate computes the indicators. Totals honour rng when given; the
// period metrics always look at the whole canonical set by calendar
// year/month, regardless of rng.
func Aggregate(set CanonicalSet, rng *DateRange, period Period) IndicatorSet {
	total, year, month := newTally(), newTally(), newTally()

	for i := range set.records {
		r := &set.records[i]

		if rng == nil || rng.Contains(r.InfractionDate) {
			total.add(r)
		}

		if period.containsYear(r.InfractionDate) {
			year.add(r)
		}

		if period.containsMonth(r.InfractionDate) {
			month.add(r)
		}
	}

	return IndicatorSet{
		SnapshotDate: set.date,
		TotalCount:   len(total.ids),
		TotalAmount:  total.amount,
		Period:       period,
		YearCount:    len(year.ids),
		YearAmount:   year.amount,
		MonthCount:   len(month.ids),
		MonthAmount:  month.amount,
	}
}
