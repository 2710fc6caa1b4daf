// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package planilha turns the fines spreadsheet into positional rows and owns
// the table that gives each position its meaning.
package planilha

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RawRow is one spreadsheet row, addressed by position only. Header names
// are never trusted.
type RawRow []string

// Field is a semantic column of the fines spreadsheet.
type Field int

const (
	FieldQueryDate Field = iota
	FieldPlate
	FieldInfractionID
	FieldInfractionCode
	FieldInfractionDate
	FieldDescription
	FieldLocation
	FieldOriginalAmount
	FieldAmount
	FieldPaymentStatus
	numFields
)

var fieldNames = [numFields]string{
	FieldQueryDate:      "dia_consulta",
	FieldPlate:          "placa",
	FieldInfractionID:   "auto_infracao",
	FieldInfractionCode: "enquadramento",
	FieldInfractionDate: "data_infracao",
	FieldDescription:    "descricao",
	FieldLocation:       "local",
	FieldOriginalAmount: "valor_original",
	FieldAmount:         "valor_pagar",
	FieldPaymentStatus:  "status_pagamento",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}

	return fieldNames[f]
}

// ParseField converts a configuration name like "valor_pagar" to its Field.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}

	return 0, fmt.Errorf("unknown column %q", name)
}

// ErrNarrowSheet is returned when a sheet has fewer columns than the layout
// addresses.
var ErrNarrowSheet = errors.New("sheet has fewer columns than the layout requires")

// Layout maps every Field to a column index. It is the only place where
// column positions are spelled out.
type Layout struct {
	columns [numFields]int
	width   int
}

// DefaultLayout is the layout of the "consulta de multas" export: query date
// in A, plate in B, the notice id in F, the infraction code in I, and so on
// up to the payment status in P.
func DefaultLayout() *Layout {
	l, err := NewLayout(map[Field]int{
		FieldQueryDate:      0,
		FieldPlate:          1,
		FieldInfractionID:   5,
		FieldInfractionCode: 8,
		FieldInfractionDate: 9,
		FieldDescription:    11,
		FieldLocation:       12,
		FieldOriginalAmount: 13,
		FieldAmount:         14,
		FieldPaymentStatus:  15,
	})
	if err != nil {
		panic(err)
	}

	return l
}

// NewLayout builds a layout. Every field must be mapped exactly once to a
// distinct, non-negative column.
func NewLayout(columns map[Field]int) (*Layout, error) {
	var l Layout

	seen := make(map[int]Field, len(columns))

	for f := range numFields {
		idx, ok := columns[f]
		if !ok {
			return nil, fmt.Errorf("layout: column %s is not mapped", f)
		}

		if idx < 0 {
			return nil, fmt.Errorf("layout: column %s has negative index %d", f, idx)
		}

		if other, dup := seen[idx]; dup {
			return nil, fmt.Errorf("layout: columns %s and %s share index %d", other, f, idx)
		}

		seen[idx] = f
		l.columns[f] = idx
		l.width = max(l.width, idx+1)
	}

	return &l, nil
}

// WithOverrides returns a copy of the layout with some columns moved, as
// read from configuration (field name → zero based index).
func (l *Layout) WithOverrides(overrides map[string]int) (*Layout, error) {
	columns := make(map[Field]int, numFields)
	for f := range numFields {
		columns[f] = l.columns[f]
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		f, err := ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}

		columns[f] = overrides[name]
	}

	return NewLayout(columns)
}

// Index returns the column of a field.
func (l *Layout) Index(f Field) int {
	return l.columns[f]
}

// Width is the minimum number of positions a row needs.
func (l *Layout) Width() int {
	return l.width
}

// Validate checks a sheet width against the layout.
func (l *Layout) Validate(width int) error {
	if width < l.width {
		return fmt.Errorf("%w: got %d, need %d", ErrNarrowSheet, width, l.width)
	}

	return nil
}

// Cell returns the cell for a field. Callers must have checked the row
// width first.
func (l *Layout) Cell(row RawRow, f Field) string {
	return row[l.columns[f]]
}
