// Package model provides data models for the sync tool.
package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRun = regexp.MustCompile(`[\s_]+`)
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRun    = regexp.MustCompile(`-+`)
)

// NormalizeSlug turns free text into a NetBox-safe slug.
//
// Accents are folded to their base letter, the text is lowercased, runs of
// whitespace and underscores become a hyphen, "+" becomes "-plus", anything
// outside [a-z0-9-] is dropped, and repeated or surrounding hyphens are removed.
// The result depends only on the input.
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}

	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = separatorRun.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "+", "-plus")
	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
