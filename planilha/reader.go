// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package planilha

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Format of the spreadsheet bytes.
type Format int

const (
	// FormatAuto sniffs the content: zip magic means xlsx, anything else csv.
	FormatAuto Format = iota
	FormatXLSX
	FormatCSV
)

// FormatFromName infers the format from a file name extension.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	default:
		return FormatAuto
	}
}

// ReaderOptions controls how rows are read.
type ReaderOptions struct {
	Format Format
	// Sheet to read in xlsx files; the first sheet when empty.
	Sheet string
	// HeaderRows are skipped. The first of them, when present, sets the
	// sheet width checked against the layout.
	HeaderRows int
	// Comma is the CSV separator, ',' when zero.
	Comma rune
	// Latin1 decodes CSV input as ISO-8859-1, as older exports are.
	Latin1 bool
}

var (
	errEmptySheet = errors.New("sheet has no rows")
	zipMagic      = []byte("PK\x03\x04")
	utf8BOM       = "\ufeff"
)

// Row is a data row and its 1-based row number in the sheet, header rows
// included, as a spreadsheet program shows it.
type Row struct {
	Number int
	Cells  RawRow
}

// ReadRows parses tabular bytes into positional rows. Blank rows are
// dropped. Short xlsx rows are padded to
// the sheet width, since xlsx writers omit trailing empty cells; short CSV
// rows are kept as they are.
func ReadRows(r io.Reader, layout *Layout, opts ReaderOptions) ([]Row, error) {
	br := bufio.NewReader(r)

	format := opts.Format
	if format == FormatAuto {
		magic, _ := br.Peek(len(zipMagic))
		if bytes.Equal(magic, zipMagic) {
			format = FormatXLSX
		} else {
			format = FormatCSV
		}
	}

	var (
		records []Row
		err     error
	)

	switch format {
	case FormatXLSX:
		records, err = readXLSX(br, opts.Sheet)
	default:
		records, err = readCSV(br, opts)
	}

	if err != nil {
		return nil, err
	}

	return shape(records, layout, opts.HeaderRows, format == FormatXLSX)
}

func readXLSX(r io.Reader, sheet string) ([]Row, error) {
	// Raw values keep dates as serial numbers and amounts without the
	// cell number format applied; the normalizer understands both.
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errEmptySheet
		}

		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	// GetRows returns empty rows in between, so the index is the row number.
	ret := make([]Row, len(rows))
	for i, cells := range rows {
		ret[i] = Row{Number: i + 1, Cells: cells}
	}

	return ret, nil
}

func readCSV(r io.Reader, opts ReaderOptions) ([]Row, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	var rows []Row

	// Empty lines never come out of Read, so numbers come from FieldPos.
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		rows = append(rows, Row{Number: line, Cells: rec})
	}

	if len(rows) > 0 && len(rows[0].Cells) > 0 {
		rows[0].Cells[0] = strings.TrimPrefix(rows[0].Cells[0], utf8BOM)
	}

	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

func shape(records []Row, layout *Layout, headerRows int, pad bool) ([]Row, error) {
	if len(records) == 0 {
		return nil, errEmptySheet
	}

	var width int

	if headerRows > 0 {
		width = len(records[0].Cells)
		if err := layout.Validate(width); err != nil {
			return nil, err
		}

		if headerRows >= len(records) {
			return nil, nil
		}

		records = records[headerRows:]
	} else {
		for _, rec := range records {
			width = max(width, len(rec.Cells))
		}

		if err := layout.Validate(width); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(records))

	for _, rec := range records {
		if blank(rec.Cells) {
			continue
		}

		if pad && len(rec.Cells) < width {
			padded := make(RawRow, width)
			copy(padded, rec.Cells)
			rec.Cells = padded
		}

		rows = append(rows, rec)
	}

	return rows, nil
}
