// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package planilha

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var header = []any{
	"Dia da Consulta", "Placa Relacionada", "Renavam", "Órgão", "UF",
	"Auto de Infração", "Situação", "Tipo", "Enquadramento da Infração",
	"Data da Infração", "Hora", "Descrição", "Local da Infração",
	"Valor Original R$", "Valor a ser pago R$", "Status de Pagamento",
}

func buildXLSX(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	return buf
}

func TestReadRows_XLSX(t *testing.T) {
	buf := buildXLSX(t,
		[]any{45301, "ABC1D23", "", "", "RJ", "A12345678", "", "", "7455-0", "05/01/2024", "", "Avançar sinal", "Av. Brasil", 150.5, 150.5},
		[]any{},
		[]any{"09/01/2024", "XYZ9876", "", "", "RJ", "B87654321", "", "", "5010-0", "03/01/2024", "", "Estacionar", "Rua A", "80,00", "80,00", "Pago"},
	)

	rows, err := ReadRows(buf, DefaultLayout(), ReaderOptions{HeaderRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, 4, rows[1].Number, "the blank row keeps its number")

	first := rows[0].Cells
	assert.Len(t, first, 16, "trailing empty cells are padded")
	assert.Equal(t, "45301", first[0])
	assert.Equal(t, "A12345678", DefaultLayout().Cell(first, FieldInfractionID))
	assert.Equal(t, "150.5", DefaultLayout().Cell(first, FieldAmount))
	assert.Equal(t, "", DefaultLayout().Cell(first, FieldPaymentStatus))

	assert.Equal(t, "Pago", DefaultLayout().Cell(rows[1].Cells, FieldPaymentStatus))
	assert.Equal(t, "80,00", DefaultLayout().Cell(rows[1].Cells, FieldAmount))
}

func TestReadRows_CSVShortRowsAreKept(t *testing.T) {
	text := strings.Repeat("h,", 15) + "h\n" +
		"10/01/2024,ABC1234,,,,A12345678\n" +
		"\n" +
		",,,,,,,,,,,,,,,\n" +
		"09/01/2024,XYZ9876,,,,B87654321,,,,,,,,,,Pago\n"

	rows, err := ReadRows(strings.NewReader(text), DefaultLayout(), ReaderOptions{
		Format:     FormatCSV,
		HeaderRows: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Len(t, rows[0].Cells, 6, "short csv rows are not padded")
	assert.Equal(t, 2, rows[0].Number)

	assert.Len(t, rows[1].Cells, 16)
	assert.Equal(t, 5, rows[1].Number, "empty and blank lines keep their numbers")
}

func TestReadRows_NarrowSheet(t *testing.T) {
	csv := "a;b;c\n1;2;3\n"

	_, err := ReadRows(strings.NewReader(csv), DefaultLayout(), ReaderOptions{
		Format:     FormatCSV,
		HeaderRows: 1,
		Comma:      ';',
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNarrowSheet))
}

func TestReadRows_CSVLatin1(t *testing.T) {
	line := func(cells ...string) string {
		row := make([]string, 16)
		copy(row, cells)

		return strings.Join(row, ";") + "\n"
	}

	text := line("Dia da Consulta", "Placa") +
		line("10/01/2024", "ABC1D23", "", "", "", "A12345678", "", "", "", "05/01/2024", "", "Avançar o sinal vermelho", "Niterói", "R$ 1.234,56", "R$ 1.234,56", "Em aberto")

	encoded, err := charmap.ISO8859_1.NewEncoder().String(text)
	require.NoError(t, err)

	rows, err := ReadRows(strings.NewReader(encoded), DefaultLayout(), ReaderOptions{
		HeaderRows: 1,
		Comma:      ';',
		Latin1:     true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	l := DefaultLayout()
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Niterói", l.Cell(rows[0].Cells, FieldLocation))
	assert.Equal(t, "Avançar o sinal vermelho", l.Cell(rows[0].Cells, FieldDescription))
	assert.Equal(t, "R$ 1.234,56", l.Cell(rows[0].Cells, FieldAmount))
}

func TestReadRows_Empty(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""), DefaultLayout(), ReaderOptions{Format: FormatCSV})
	require.Error(t, err)
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatXLSX, FormatFromName("multas.XLSX"))
	assert.Equal(t, FormatCSV, FormatFromName("/tmp/multas.csv"))
	assert.Equal(t, FormatAuto, FormatFromName("1AbCdEf"))
}
