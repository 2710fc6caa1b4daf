// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds the string helpers shared by the ingestion and
// geocoding packages.
package textutils

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// FoldKey is LowerASCIIFolding plus collapsing of inner whitespace runs, so
// "São  Paulo" and "sao paulo" yield the same key.
func FoldKey(s string) string {
	return strings.Join(strings.Fields(LowerASCIIFolding(s)), " ")
}

var brazilian = message.NewPrinter(language.BrazilianPortuguese)

// FormatInt formats an integer with Brazilian thousands separators, so
// 1234567 reads 1.234.567.
func FormatInt(n int64) string {
	return brazilian.Sprintf("%d", n)
}

// FormatCents formats an amount in cents as Brazilian currency digits,
// 123456 reads 1.234,56.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}

	return fmt.Sprintf("%s%s,%02d", sign, FormatInt(cents/100), cents%100)
}
