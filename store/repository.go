// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package store keeps every ingested spreadsheet in DuckDB. Snapshots are
// never stored; they are derived from the full history on read.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/painelmultas/painel/multas"
	"github.com/shopspring/decimal"
)

// Ingestion summarizes one stored source.
type Ingestion struct {
	Source      string    `json:"source"`
	IngestedAt  time.Time `json:"ingested_at"`
	Records     int       `json:"records"`
	Rejected    int       `json:"rejected"`
	Diagnostics int       `json:"diagnostics"`
}

// Rejection is a multas.Rejection tagged with its source.
type Rejection struct {
	Source string `json:"source"`
	multas.Rejection
}

// Diagnostic is a multas.Diagnostic tagged with its source.
type Diagnostic struct {
	Source string `json:"source"`
	multas.Diagnostic
}

// RecordRepository defines the interface for database operations.
type RecordRepository interface {
	// CreateSchema creates the database schema.
	CreateSchema() error
	// SaveBatch replaces everything stored for source with batch.
	SaveBatch(source string, batch *multas.Batch) error
	// LoadRecords returns every stored record, oldest ingestion first and
	// in sheet order within an ingestion.
	LoadRecords() ([]multas.Record, error)
	// Ingestions lists the stored sources, oldest first.
	Ingestions() ([]Ingestion, error)
	// Rejections lists rejected rows; an empty source means all of them.
	Rejections(source string) ([]Rejection, error)
	// Diagnostics lists normalized cells; an empty source means all of them.
	Diagnostics(source string) ([]Diagnostic, error)
}

type sqlRecordRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLRecordRepository wraps an open DuckDB handle.
func NewSQLRecordRepository(db *sql.DB) RecordRepository {
	return &sqlRecordRepository{db: db, now: time.Now}
}

func (r *sqlRecordRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS ingestions (
			source VARCHAR NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS records (
			source VARCHAR NOT NULL,
			seq INTEGER NOT NULL,
			query_date TIMESTAMPTZ,
			plate VARCHAR,
			infraction_id VARCHAR NOT NULL,
			infraction_code VARCHAR,
			infraction_date TIMESTAMPTZ,
			description VARCHAR,
			location VARCHAR,
			original_amount VARCHAR NOT NULL,
			amount VARCHAR NOT NULL,
			payment_status VARCHAR
		);

		CREATE TABLE IF NOT EXISTS rejections (
			source VARCHAR NOT NULL,
			row_num INTEGER NOT NULL,
			infraction_id VARCHAR,
			reason VARCHAR NOT NULL
		);

		CREATE TABLE IF NOT EXISTS diagnostics (
			source VARCHAR NOT NULL,
			row_num INTEGER NOT NULL,
			column_name VARCHAR NOT NULL,
			value VARCHAR,
			reason VARCHAR NOT NULL
		);
	`)

	return err
}

func nve(v string) any {
	if len(v) == 0 {
		return nil
	}

	return v
}

func nzt(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}

func (r *sqlRecordRepository) SaveBatch(source string, batch *multas.Batch) error {
	if source == "" {
		return errors.New("saving batch: empty source")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", source, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for %s: %v", source, err)
		}
	}()

	for _, table := range []string{"records", "rejections", "diagnostics", "ingestions"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE source = ?", source); err != nil {
			return fmt.Errorf("deleting %s for %s: %w", table, source, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO ingestions (source, ingested_at) VALUES (?, ?)", source, r.now()); err != nil {
		return fmt.Errorf("inserting ingestion %s: %w", source, err)
	}

	if err := insertRecords(tx, source, batch.Records); err != nil {
		return err
	}

	if err := insertRejections(tx, source, batch.Rejected); err != nil {
		return err
	}

	if err := insertDiagnostics(tx, source, batch.Diagnostics); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRecords(tx *sql.Tx, source string, records []multas.Record) error {
	stmt, err := tx.Prepare(`
		INSERT INTO records (
			source, seq, query_date, plate, infraction_id, infraction_code,
			infraction_date, description, location, original_amount, amount, payment_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err := stmt.Exec(
			source,
			i,
			nzt(rec.QueryDate),
			nve(rec.Plate),
			rec.InfractionID,
			nve(rec.InfractionCode),
			nzt(rec.InfractionDate),
			nve(rec.Description),
			nve(rec.Location),
			rec.OriginalAmount.String(),
			rec.Amount.String(),
			nve(rec.PaymentStatus),
		)
		if err != nil {
			return fmt.Errorf("inserting record %s for %s: %w", rec.InfractionID, source, err)
		}
	}

	return nil
}

func insertRejections(tx *sql.Tx, source string, rejected []multas.Rejection) error {
	for _, rej := range rejected {
		_, err := tx.Exec(
			"INSERT INTO rejections (source, row_num, infraction_id, reason) VALUES (?, ?, ?, ?)",
			source, rej.Row, nve(rej.InfractionID), rej.Reason,
		)
		if err != nil {
			return fmt.Errorf("inserting rejection for %s: %w", source, err)
		}
	}

	return nil
}

func insertDiagnostics(tx *sql.Tx, source string, diags []multas.Diagnostic) error {
	for _, d := range diags {
		_, err := tx.Exec(
			"INSERT INTO diagnostics (source, row_num, column_name, value, reason) VALUES (?, ?, ?, ?, ?)",
			source, d.Row, d.Column, nve(d.Value), d.Reason,
		)
		if err != nil {
			return fmt.Errorf("inserting diagnostic for %s: %w", source, err)
		}
	}

	return nil
}

func (r *sqlRecordRepository) LoadRecords() ([]multas.Record, error) {
	rows, err := r.db.Query(`
		SELECT
			r.query_date, r.plate, r.infraction_id, r.infraction_code,
			r.infraction_date, r.description, r.location,
			r.original_amount, r.amount, r.payment_status
		FROM records r
		JOIN ingestions i USING (source)
		ORDER BY i.ingested_at, r.source, r.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var ret []multas.Record

	for rows.Next() {
		var (
			rec                                     multas.Record
			queryDate, infractionDate               sql.NullTime
			plate, code, description, location, pay sql.NullString
			original, amount                        string
		)

		if err := rows.Scan(
			&queryDate, &plate, &rec.InfractionID, &code,
			&infractionDate, &description, &location,
			&original, &amount, &pay,
		); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		rec.QueryDate = civilTime(queryDate)
		rec.InfractionDate = civilTime(infractionDate)
		rec.Plate = plate.String
		rec.InfractionCode = code.String
		rec.Description = description.String
		rec.Location = location.String
		rec.PaymentStatus = pay.String

		if rec.OriginalAmount, err = decimal.NewFromString(original); err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", original, err)
		}

		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", amount, err)
		}

		ret = append(ret, rec)
	}

	return ret, rows.Err()
}

// civilTime brings stored instants back to the sheet's time zone.
func civilTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}

	return t.Time.In(multas.Timezone)
}

func (r *sqlRecordRepository) Ingestions() ([]Ingestion, error) {
	rows, err := r.db.Query(`
		SELECT
			i.source,
			i.ingested_at,
			(SELECT COUNT(*) FROM records r WHERE r.source = i.source),
			(SELECT COUNT(*) FROM rejections j WHERE j.source = i.source),
			(SELECT COUNT(*) FROM diagnostics d WHERE d.source = i.source)
		FROM ingestions i
		ORDER BY i.ingested_at, i.source
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ingestions: %w", err)
	}
	defer rows.Close()

	var ret []Ingestion

	for rows.Next() {
		var in Ingestion
		if err := rows.Scan(&in.Source, &in.IngestedAt, &in.Records, &in.Rejected, &in.Diagnostics); err != nil {
			return nil, fmt.Errorf("scanning ingestion: %w", err)
		}

		ret = append(ret, in)
	}

	return ret, rows.Err()
}

// sourceFilter restricts a query to one source, or to none when empty.
func sourceFilter(source string) (string, []any) {
	if source == "" {
		return "", nil
	}

	return "WHERE source = ?", []any{source}
}

func (r *sqlRecordRepository) Rejections(source string) ([]Rejection, error) {
	where, args := sourceFilter(source)

	rows, err := r.db.Query(`
		SELECT source, row_num, infraction_id, reason
		FROM rejections
		`+where+`
		ORDER BY source, row_num
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rejections: %w", err)
	}
	defer rows.Close()

	var ret []Rejection

	for rows.Next() {
		var (
			rej Rejection
			id  sql.NullString
		)

		if err := rows.Scan(&rej.Source, &rej.Row, &id, &rej.Reason); err != nil {
			return nil, fmt.Errorf("scanning rejection: %w", err)
		}

		rej.InfractionID = id.String
		ret = append(ret, rej)
	}

	return ret, rows.Err()
}

func (r *sqlRecordRepository) Diagnostics(source string) ([]Diagnostic, error) {
	where, args := sourceFilter(source)

	rows, err := r.db.Query(`
		SELECT source, row_num, column_name, value, reason
		FROM diagnostics
		`+where+`
		ORDER BY source, row_num, column_name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer rows.Close()

	var ret []Diagnostic

	for rows.Next() {
		var (
			d     Diagnostic
			value sql.NullString
		)

		if err := rows.Scan(&d.Source, &d.Row, &d.Column, &value, &d.Reason); err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}

		d.Value = value.String
		ret = append(ret, d)
	}

	return ret, rows.Err()
}
