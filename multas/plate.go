// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// NormalizePlate removes spaces and dashes and uppercases, so "abc-1234"
// and "ABC 1234" are the same vehicle.
func NormalizePlate(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}

		return r
	}, s)

	return strings.ToUpper(s)
}

// Plate formats.
const (
	PlateMercosul = "Mercosul"
	PlateOld      = "Antiga"
)

var (
	mercosulPlateRegex = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z][0-9]{2}$`)
	oldPlateRegex      = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)
)

// PlateInfo is what the plate itself tells about the vehicle.
type PlateInfo struct {
	Plate  string `json:"plate"`
	Format string `json:"format"`
	// Mercosul is the plate in the Mercosul format. Converted vehicles keep
	// their letters and digits, only the second digit becomes a letter
	// (0 → A … 9 → J).
	Mercosul string `json:"mercosul"`
}

var errUnknownPlate = errors.New("not a brazilian plate")

// AnalyzePlate recognizes the Brazilian formats, AAA0000 and AAA0A00.
func AnalyzePlate(plate string) (*PlateInfo, error) {
	plate = NormalizePlate(plate)

	switch {
	case mercosulPlateRegex.MatchString(plate):
		return &PlateInfo{Plate: plate, Format: PlateMercosul, Mercosul: plate}, nil
	case oldPlateRegex.MatchString(plate):
		b := []byte(plate)
		b[4] = 'A' + (b[4] - '0')

		return &PlateInfo{Plate: plate, Format: PlateOld, Mercosul: string(b)}, nil
	}

	return &PlateInfo{Plate: plate}, errUnknownPlate
}
