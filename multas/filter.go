// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package multas

import (
	"strings"
)

// Filter narrows a canonical set the way the dashboard filter panel does.
// Empty fields match everything.
type Filter struct {
	Range  *DateRange
	Codes  []string
	Plates []string
}

func toSet(values []string, fold func(string) string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}

	ret := make(map[string]struct{}, len(values))
	for _, v := range values {
		ret[fold(v)] = struct{}{}
	}

	return ret
}

// Apply returns the matching records. A subset of a canonical set is still
// canonical, so the result keeps the snapshot date.
func (f Filter) Apply(set CanonicalSet) CanonicalSet {
	codes := toSet(f.Codes, strings.TrimSpace)
	plates := toSet(f.Plates, NormalizePlate)

	out := make([]Record, 0, len(set.records))

	for _, r := range set.records {
		if f.Range != nil && !f.Range.Contains(r.InfractionDate) {
			continue
		}

		if codes != nil {
			if _, ok := codes[r.InfractionCode]; !ok {
				continue
			}
		}

		if plates != nil {
			if _, ok := plates[r.Plate]; !ok {
				continue
			}
		}

		out = append(out, r)
	}

	return CanonicalSet{records: out, date: set.date}
}

// Bounds returns the earliest and latest infraction dates, used to seed the
// date pickers. ok is false when no record has a date.
func (s CanonicalSet) Bounds() (DateRange, bool) {
	var rng DateRange

	for _, r := range s.records {
		t := r.InfractionDate
		if t.IsZero() {
			continue
		}

		if rng.From.IsZero() || t.Before(rng.From) {
			rng.From = t
		}

		if rng.To.IsZero() || t.After(rng.To) {
			rng.To = t
		}
	}

	return rng, !rng.From.IsZero()
}
