// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // the container images carry no zoneinfo

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Timezone is the civil time zone of every date in the spreadsheet.
var Timezone = func() *time.Location {
	tz, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}

	return tz
}()

// Day first, always. ISO dates come from cells formatted by the exporter.
var dateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2/1/06",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var serialRegex = regexp.MustCompile(`^\d{1,7}(\.\d+)?$`)

// Excel stores dates as days since 1899-12-30; anything past year 9999 is
// not a date.
const maxExcelSerial = 2958465

// parseDate parses a cell with the day-first convention. Empty or
// unparsable cells yield the zero time.
func parseDate(s string) time.Time {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}
	}

	if serialRegex.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err == nil && serial >= 1 && serial <= maxExcelSerial {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, Timezone)
			}
		}

		return time.Time{}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(Timezone)
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, Timezone); err == nil {
			return t
		}
	}

	return time.Time{}
}

var (
	amountStripRegex  = regexp.MustCompile(`[^0-9,.\-]`)
	errNegativeAmount = errors.New("negative amount")
)

// ParseAmount reads a Brazilian currency string like "R$ 1.234,56". Only
// digits, comma, period and minus survive; with a comma present periods are
// thousands separators, without one a single period is the decimal point.
// An empty remainder is zero. On error the returned amount is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := amountStripRegex.ReplaceAllString(s, "")

	switch {
	case strings.Contains(clean, ","):
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	if clean == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w %q", errNegativeAmount, s)
	}

	return d, nil
}

// ParseDay parses a user supplied day, dd/mm/yyyy or yyyy-mm-dd, at
// midnight in Timezone. Unlike cells, bad input is an error.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, Timezone); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q, expected dd/mm/aaaa or aaaa-mm-dd", s)
}
