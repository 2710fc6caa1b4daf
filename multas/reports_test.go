// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"testing"
	"time"

	"github.com/painelmultas/painel/spatial"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fine struct {
	id, plate, code, desc, location string
	date                            time.Time
	amount                          string
}

func fines(t *testing.T, list ...fine) CanonicalSet {
	t.Helper()

	records := make([]Record, 0, len(list))
	for _, f := range list {
		records = append(records, Record{
			QueryDate:      day(2024, 6, 1),
			InfractionID:   f.id,
			Plate:          f.plate,
			InfractionCode: f.code,
			Description:    f.desc,
			Location:       f.location,
			InfractionDate: f.date,
			Amount:         decimal.RequireFromString(f.amount),
		})
	}

	return canonical(t, records...)
}

const (
	speeding = "TRANSITAR EM VELOCIDADE SUPERIOR A MAXIMA PERMITIDA EM ATE 20%"
	redLight = "AVANCAR O SINAL VERMELHO DO SEMAFORO"
	parking  = "ESTACIONAR EM LOCAL PROIBIDO"
)

func sample(t *testing.T) CanonicalSet {
	return fines(t,
		fine{"A00000001", "AAA1A11", "7455-0", speeding, "Av. Brasil", day(2024, 1, 1), "130.16"},   // Monday
		fine{"A00000002", "AAA1A11", "7455-0", speeding, "Av. Brasil", day(2024, 1, 2), "130.16"},   // Tuesday
		fine{"A00000003", "BBB2B22", "6050-1", redLight, "Rua Niterói", day(2024, 3, 3), "293.47"},  // Sunday
		fine{"A00000004", "CCC3C33", "5541-0", parking, "", day(2023, 12, 1), "195.23"},             // Friday
		fine{"A00000005", "BBB2B22", "7455-1", speeding, "Rua Niteroi", time.Time{}, "130.16"},
		fine{"A00000003", "BBB2B22", "6050-1", redLight, "Rua Niterói", day(2024, 3, 4), "293.47"}, // Monday
	)
}

func TestFilter(t *testing.T) {
	set := sample(t)

	rng, err := NewDateRange(day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty", Filter{}, []string{"A00000001", "A00000002", "A00000003", "A00000004", "A00000005", "A00000003"}},
		{"range", Filter{Range: &rng}, []string{"A00000001", "A00000002"}},
		{"codes", Filter{Codes: []string{" 6050-1", "5541-0"}}, []string{"A00000003", "A00000004", "A00000003"}},
		{"plates", Filter{Plates: []string{"ccc3c33"}}, []string{"A00000004"}},
		{"combined", Filter{Range: &rng, Plates: []string{"BBB2B22"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(set)
			assert.Equal(t, tt.want, ids(got))
			assert.True(t, got.Date().Equal(set.Date()))
		})
	}
}

func TestBounds(t *testing.T) {
	rng, ok := sample(t).Bounds()
	require.True(t, ok)
	assert.True(t, rng.From.Equal(day(2023, 12, 1)))
	assert.True(t, rng.To.Equal(day(2024, 3, 4)))

	_, ok = CanonicalSet{}.Bounds()
	assert.False(t, ok)
}

func TestTopInfractions(t *testing.T) {
	got := TopInfractions(sample(t), 2)

	assert.Equal(t, []InfractionCount{
		{Description: speeding, Code: "7455-0", Count: 3},
		{Description: redLight, Code: "6050-1", Count: 2},
	}, got)

	assert.Len(t, TopInfractions(sample(t), 0), 3)
}

func TestByWeekday(t *testing.T) {
	got := ByWeekday(sample(t))
	require.Len(t, got, 7)

	assert.Equal(t, time.Monday, got[0].Weekday)
	assert.Equal(t, time.Sunday, got[6].Weekday)

	counts := make(map[time.Weekday]int)
	for _, w := range got {
		counts[w.Weekday] = w.Count
	}

	assert.Equal(t, map[time.Weekday]int{
		time.Monday:    2,
		time.Tuesday:   1,
		time.Wednesday: 0,
		time.Thursday:  0,
		time.Friday:    1,
		time.Saturday:  0,
		time.Sunday:    1,
	}, counts)
}

func TestTopVehicles(t *testing.T) {
	got := TopVehicles(sample(t), 2024, 10)
	require.Len(t, got, 2)

	assert.Equal(t, "AAA1A11", got[0].Plate)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "260.32", got[0].Amount.String())

	// A00000003 appears twice but counts once; A00000005 has no date.
	assert.Equal(t, "BBB2B22", got[1].Plate)
	assert.Equal(t, 1, got[1].Count)
	assert.Equal(t, "293.47", got[1].Amount.String())

	assert.Len(t, TopVehicles(sample(t), 2024, 1), 1)
	assert.Empty(t, TopVehicles(sample(t), 2022, 10))
}

func TestMonthlySeries(t *testing.T) {
	got := MonthlySeries(sample(t), 2024)
	require.Len(t, got, 12)

	assert.Equal(t, time.January, got[0].Month)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "260.32", got[0].Amount.String())

	assert.Zero(t, got[1].Count)
	assert.True(t, got[1].Amount.IsZero())

	assert.Equal(t, 1, got[2].Count)
	assert.Equal(t, "586.94", got[2].Amount.String())
	assert.Equal(t, time.December, got[11].Month)
}

func TestMapPoints(t *testing.T) {
	coords := map[string]spatial.Point{
		"Av. Brasil": {Lat: -22.87, Lng: -43.27},
	}

	got := MapPoints(sample(t), func(location string) (spatial.Point, bool) {
		p, ok := coords[location]
		return p, ok
	})

	require.Len(t, got, 2)
	assert.Equal(t, "A00000001", got[0].InfractionID)
	assert.Equal(t, coords["Av. Brasil"], got[0].Point)
	assert.NotNil(t, got[0].InfractionDate)
}

func TestLocations(t *testing.T) {
	assert.Equal(t, []string{"Av. Brasil", "Rua Niterói", "Rua Niteroi"}, Locations(sample(t)))
}
