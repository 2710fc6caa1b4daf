// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package multas cleans traffic-fine rows, reconciles ingestion snapshots and
// computes the indicators and series shown on the dashboard.
package multas

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/painelmultas/painel/planilha"
	"github.com/shopspring/decimal"
)

// infractionIDRegex is the "auto de infração" format: one letter, eight digits.
var infractionIDRegex = regexp.MustCompile(`^[A-Z]\d{8}$`)

// ErrShortRow is returned for rows narrower than the layout.
var ErrShortRow = errors.New("row has fewer columns than the layout requires")

// InvalidIDError reports an infraction id that does not match the notice format.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid infraction id %q", e.ID)
}

// Record is a cleaned spreadsheet row. Zero dates mean the cell was empty
// or unparsable.
type Record struct {
	QueryDate      time.Time
	Plate          string
	InfractionID   string
	InfractionCode string
	InfractionDate time.Time
	Description    string
	Location       string
	OriginalAmount decimal.Decimal
	Amount         decimal.Decimal
	PaymentStatus  string
}

// Validate checks the infraction id gate.
func (r *Record) Validate() error {
	if !infractionIDRegex.MatchString(r.InfractionID) {
		return &InvalidIDError{ID: r.InfractionID}
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

// MarshalJSON renders zero dates as null so consumers can tell "no date"
// from a real one.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		QueryDate      *time.Time      `json:"query_date"`
		Plate          string          `json:"plate"`
		InfractionID   string          `json:"infraction_id"`
		InfractionCode string          `json:"infraction_code"`
		InfractionDate *time.Time      `json:"infraction_date"`
		Description    string          `json:"description"`
		Location       string          `json:"location"`
		OriginalAmount decimal.Decimal `json:"original_amount"`
		Amount         decimal.Decimal `json:"amount"`
		PaymentStatus  string          `json:"payment_status"`
	}{
		QueryDate:      nullableTime(r.QueryDate),
		Plate:          r.Plate,
		InfractionID:   r.InfractionID,
		InfractionCode: r.InfractionCode,
		InfractionDate: nullableTime(r.InfractionDate),
		Description:    r.Description,
		Location:       r.Location,
		OriginalAmount: r.OriginalAmount,
		Amount:         r.Amount,
		PaymentStatus:  r.PaymentStatus,
	})
}

// Diagnostic is a cell that was normalized to a neutral default. It is
// informational; the record is still usable.
type Diagnostic struct {
	Row    int            `json:"row"`
	Field  planilha.Field `json:"-"`
	Column string         `json:"column"`
	Value  string         `json:"value"`
	Reason string         `json:"reason"`
}

// Rejection is a row excluded by the infraction id gate or its width.
type Rejection struct {
	Row          int    `json:"row"`
	InfractionID string `json:"infraction_id"`
	Reason       string `json:"reason"`
}

func diagnose(field planilha.Field, value, reason string) Diagnostic {
	return Diagnostic{Field: field, Column: field.String(), Value: value, Reason: reason}
}

// Normalize turns a raw row into a Record. Dates and amounts never fail:
// they fall back to zero and are reported as diagnostics. The only errors
// are ErrShortRow and *InvalidIDError; with the latter the returned record
// is still filled in for reporting.
func Normalize(layout *planilha.Layout, row planilha.RawRow) (Record, []Diagnostic, error) {
	if len(row) < layout.Width() {
		return Record{}, nil, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), layout.Width())
	}

	cell := func(f planilha.Field) string {
		return strings.TrimSpace(layout.Cell(row, f))
	}

	var diags []Diagnostic

	date := func(f planilha.Field) time.Time {
		raw := cell(f)

		t := parseDate(raw)
		if t.IsZero() && raw != "" {
			diags = append(diags, diagnose(f, raw, "unparsable date"))
		}

		return t
	}

	amount := func(f planilha.Field) decimal.Decimal {
		raw := cell(f)

		d, err := ParseAmount(raw)
		if err != nil {
			diags = append(diags, diagnose(f, raw, err.Error()))
		}

		return d
	}

	rec := Record{
		QueryDate:      date(planilha.FieldQueryDate),
		Plate:          NormalizePlate(cell(planilha.FieldPlate)),
		InfractionID:   strings.ToUpper(cell(planilha.FieldInfractionID)),
		InfractionCode: cell(planilha.FieldInfractionCode),
		InfractionDate: date(planilha.FieldInfractionDate),
		Description:    cell(planilha.FieldDescription),
		Location:       cell(planilha.FieldLocation),
		OriginalAmount: amount(planilha.FieldOriginalAmount),
		Amount:         amount(planilha.FieldAmount),
		PaymentStatus:  cell(planilha.FieldPaymentStatus),
	}

	return rec, diags, rec.Validate()
}

// Batch is the result of normalizing a whole sheet.
type Batch struct {
	Records     []Record
	Rejected    []Rejection
	Diagnostics []Diagnostic
}

// NormalizeRows normalizes every row. Rejections and diagnostics carry the
// row numbers the reader assigned.
func NormalizeRows(layout *planilha.Layout, rows []planilha.Row) *Batch {
	b := &Batch{Records: make([]Record, 0, len(rows))}

	for _, row := range rows {
		n := row.Number

		rec, diags, err := Normalize(layout, row.Cells)
		for _, d := range diags {
			d.Row = n
			b.Diagnostics = append(b.Diagnostics, d)
		}

		if err != nil {
			b.Rejected = append(b.Rejected, Rejection{
				Row:          n,
				InfractionID: rec.InfractionID,
				Reason:       err.Error(),
			})

			continue
		}

		b.Records = append(b.Records, rec)
	}

	return b
}
