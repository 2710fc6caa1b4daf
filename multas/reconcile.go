// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"errors"
	"slices"
	"time"
)

// ErrNoValidSnapshot is returned when no record carries a query date, so the
// latest snapshot cannot be determined.
var ErrNoValidSnapshot = errors.New("no record has a query date")

// CanonicalSet is the deduplicated, validated latest snapshot. It can only
// be built by Reconcile (and narrowed by Filter), which keeps indicators from
// ever reading raw rows.
type CanonicalSet struct {
	records []Record
	date    time.Time
}

// Records returns a copy of the records in input order.
func (s CanonicalSet) Records() []Record {
	return slices.Clone(s.records)
}

// Date is the query date of the snapshot.
func (s CanonicalSet) Date() time.Time {
	return s.date
}

// Len is the number of records.
func (s CanonicalSet) Len() int {
	return len(s.records)
}

type dedupKey struct {
	id     string
	date   string
	amount string
}

func keyOf(r *Record) dedupKey {
	var date string
	if !r.InfractionDate.IsZero() {
		date = r.InfractionDate.UTC().Format(time.RFC3339Nano)
	}

	// decimal.String drops trailing zeros, so 150.5 and 150.50 collide.
	return dedupKey{id: r.InfractionID, date: date, amount: r.Amount.String()}
}

// Reconcile picks the records of the most recent query date and removes
// duplicates of (infraction id, infraction date, amount), keeping the first
// one seen. Records failing the id gate never make it through. The result
// only depends on the input order, and reconciling it again is a no-op.
func Reconcile(records []Record) (CanonicalSet, error) {
	var latest time.Time

	for i := range records {
		if q := records[i].QueryDate; q.After(latest) {
			latest = q
		}
	}

	if latest.IsZero() {
		return CanonicalSet{}, ErrNoValidSnapshot
	}

	seen := make(map[dedupKey]struct{})
	out := make([]Record, 0)

	for i := range records {
		r := &records[i]
		if !r.QueryDate.Equal(latest) || r.Validate() != nil {
			continue
		}

		k := keyOf(r)
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, *r)
	}

	return CanonicalSet{records: out, date: latest}, nil
}
