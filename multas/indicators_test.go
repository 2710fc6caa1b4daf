// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canonical(t *testing.T, records ...Record) CanonicalSet {
	t.Helper()

	set, err := Reconcile(records)
	require.NoError(t, err)

	return set
}

func TestAggregate_Empty(t *testing.T) {
	rng, err := NewDateRange(day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)

	for _, set := range []CanonicalSet{{}, Filter{Codes: []string{"none"}}.Apply(canonical(t,
		record(day(2024, 1, 10), "A12345678", day(2024, 1, 5), "10")))} {
		for _, r := range []*DateRange{nil, &rng} {
			ind := Aggregate(set, r, Period{Year: 2024, Month: time.January})

			assert.Zero(t, ind.TotalCount)
			assert.True(t, ind.TotalAmount.IsZero())
			assert.Zero(t, ind.YearCount)
			assert.True(t, ind.YearAmount.IsZero())
			assert.Zero(t, ind.MonthCount)
			assert.True(t, ind.MonthAmount.IsZero())
		}
	}
}

func TestAggregate(t *testing.T) {
	q := day(2024, 2, 10)
	set := canonical(t,
		record(q, "A00000001", day(2024, 1, 1), "10"),
		record(q, "A00000002", day(2024, 1, 15), "20.50"),
		record(q, "A00000003", time.Date(2024, 1, 31, 23, 59, 0, 0, Timezone), "30"),
		record(q, "A00000004", day(2024, 2, 1), "40"),
		record(q, "A00000005", time.Time{}, "5"),
		record(q, "A00000006", day(2023, 12, 31), "1"),
		// Same notice, two dates: counted once, summed twice.
		record(q, "A00000002", day(2024, 1, 16), "0.50"),
	)

	t.Run("no range", func(t *testing.T) {
		ind := Aggregate(set, nil, Period{Year: 2024, Month: time.January})

		assert.True(t, ind.SnapshotDate.Equal(q))
		assert.Equal(t, 6, ind.TotalCount)
		assert.Equal(t, "107", ind.TotalAmount.String())
		assert.Equal(t, 4, ind.YearCount)
		assert.Equal(t, "101", ind.YearAmount.String())
		assert.Equal(t, 3, ind.MonthCount)
		assert.Equal(t, "61", ind.MonthAmount.String())
	})

	t.Run("inclusive range", func(t *testing.T) {
		rng, err := NewDateRange(day(2024, 1, 1), day(2024, 1, 31))
		require.NoError(t, err)

		ind := Aggregate(set, &rng, Period{Year: 2024, Month: time.January})
		assert.Equal(t, 3, ind.TotalCount)
		assert.Equal(t, "61", ind.TotalAmount.String())
	})

	t.Run("period ignores range", func(t *testing.T) {
		rng, err := NewDateRange(day(2023, 12, 1), day(2023, 12, 31))
		require.NoError(t, err)

		ind := Aggregate(set, &rng, Period{Year: 2024, Month: time.February})
		assert.Equal(t, 1, ind.TotalCount)
		assert.Equal(t, 4, ind.YearCount)
		assert.Equal(t, 1, ind.MonthCount)
		assert.Equal(t, "40", ind.MonthAmount.String())
	})

	t.Run("year only", func(t *testing.T) {
		ind := Aggregate(set, nil, Period{Year: 2023})
		assert.Equal(t, 1, ind.YearCount)
		assert.Zero(t, ind.MonthCount)
	})
}

func TestNewDateRange(t *testing.T) {
	_, err := NewDateRange(day(2024, 1, 2), day(2024, 1, 1))
	assert.Error(t, err)

	rng, err := NewDateRange(day(2024, 1, 1), day(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, rng.Contains(time.Date(2024, 1, 1, 20, 0, 0, 0, Timezone)))
	assert.False(t, rng.Contains(time.Time{}))
}

func TestIndicatorValues(t *testing.T) {
	v := Aggregate(CanonicalSet{}, nil, Period{Year: 2024, Month: time.March}).Values()

	assert.Nil(t, v["snapshot_date"])
	assert.Equal(t, 0, v["total_count"])
	assert.Equal(t, 2024, v["year"])
	assert.Equal(t, 3, v["month"])
	assert.Len(t, v, 9)
}
