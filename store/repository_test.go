// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/painelmultas/painel/multas"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, *sqlRecordRepository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLRecordRepository(db).(*sqlRecordRepository)
	require.NoError(t, repo.CreateSchema())

	clock := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	return db, repo
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, multas.Timezone)
}

func sampleBatch() *multas.Batch {
	return &multas.Batch{
		Records: []multas.Record{
			{
				QueryDate:      day(10),
				Plate:          "KXY1A23",
				InfractionID:   "A12345678",
				InfractionCode: "7455-0",
				InfractionDate: time.Date(2024, 1, 5, 8, 15, 0, 0, multas.Timezone),
				Description:    "TRANSITAR EM VELOCIDADE SUPERIOR A MAXIMA PERMITIDA EM ATE 20%",
				Location:       "AV BRASIL",
				OriginalAmount: decimal.RequireFromString("130.16"),
				Amount:         decimal.RequireFromString("104.13"),
				PaymentStatus:  "Em aberto",
			},
			{
				QueryDate:      day(10),
				InfractionID:   "B87654321",
				OriginalAmount: decimal.Zero,
				Amount:         decimal.Zero,
			},
		},
		Rejected: []multas.Rejection{
			{Row: 3, InfractionID: "A1234", Reason: `invalid infraction id "A1234"`},
			{Row: 4, Reason: "row has fewer columns than the layout requires"},
		},
		Diagnostics: []multas.Diagnostic{
			{Row: 2, Column: "valor_pagar", Value: "1,2,3", Reason: "parsing amount"},
		},
	}
}

func TestSQLRepository_SaveAndLoad(t *testing.T) {
	_, repo := setupTestDB(t)

	batch := sampleBatch()
	require.NoError(t, repo.SaveBatch("drive:abc", batch))

	got, err := repo.LoadRecords()
	require.NoError(t, err)

	if diff := cmp.Diff(batch.Records, got); diff != "" {
		t.Errorf("LoadRecords() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, multas.Timezone, got[0].InfractionDate.Location())
	assert.True(t, got[1].InfractionDate.IsZero())
}

func TestSQLRepository_ReplaceBySource(t *testing.T) {
	db, repo := setupTestDB(t)

	require.NoError(t, repo.SaveBatch("old.xlsx", &multas.Batch{Records: []multas.Record{
		{QueryDate: day(9), InfractionID: "C00000001", Amount: decimal.NewFromInt(1)},
	}}))
	require.NoError(t, repo.SaveBatch("drive:abc", sampleBatch()))
	require.NoError(t, repo.SaveBatch("drive:abc", sampleBatch()))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count))
	assert.Equal(t, 3, count)

	got, err := repo.LoadRecords()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "C00000001", got[0].InfractionID, "older ingestion first")
	assert.Equal(t, "A12345678", got[1].InfractionID)

	ingestions, err := repo.Ingestions()
	require.NoError(t, err)
	require.Len(t, ingestions, 2)
	assert.Equal(t, Ingestion{
		Source:      "drive:abc",
		IngestedAt:  ingestions[1].IngestedAt,
		Records:     2,
		Rejected:    2,
		Diagnostics: 1,
	}, ingestions[1])
	assert.Equal(t, 1, ingestions[0].Records)
}

func TestSQLRepository_Rejections(t *testing.T) {
	_, repo := setupTestDB(t)

	require.NoError(t, repo.SaveBatch("drive:abc", sampleBatch()))
	require.NoError(t, repo.SaveBatch("other.csv", &multas.Batch{Rejected: []multas.Rejection{
		{Row: 1, InfractionID: "X", Reason: "bad"},
	}}))

	all, err := repo.Rejections("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := repo.Rejections("drive:abc")
	require.NoError(t, err)
	require.Len(t, one, 2)
	assert.Equal(t, "A1234", one[0].InfractionID)
	assert.Equal(t, 3, one[0].Row)
	assert.Empty(t, one[1].InfractionID)

	diags, err := repo.Diagnostics("drive:abc")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "1,2,3", diags[0].Value)
	assert.Equal(t, "valor_pagar", diags[0].Column)

	none, err := repo.Diagnostics("other.csv")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLRepository_EmptySource(t *testing.T) {
	_, repo := setupTestDB(t)
	assert.Error(t, repo.SaveBatch("", sampleBatch()))
}

func TestSQLRepository_ReconcileFromHistory(t *testing.T) {
	_, repo := setupTestDB(t)

	require.NoError(t, repo.SaveBatch("old.xlsx", &multas.Batch{Records: []multas.Record{
		{QueryDate: day(9), InfractionID: "C00000001", Amount: decimal.NewFromInt(1)},
	}}))
	require.NoError(t, repo.SaveBatch("drive:abc", sampleBatch()))

	records, err := repo.LoadRecords()
	require.NoError(t, err)

	set, err := multas.Reconcile(records)
	require.NoError(t, err)
	assert.True(t, set.Date().Equal(day(10)))
	assert.Equal(t, 2, set.Len())
}
