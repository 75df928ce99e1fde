// Package ptbr holds the Portuguese text helpers shared by the dialogue
// pipeline: inbound messages are compared accent-insensitively and dish
// names are title-cased for display.
package ptbr

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers, trims and strips accents so "Terça" and "terca" compare
// equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripAccents, s); err == nil {
		return out
	}
	return s
}

// TitleCase renders a dish name for display: "FILÉ DE FRANGO" -> "Filé De Frango".
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(s))
}
