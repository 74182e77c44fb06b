// Package slug builds and reads the URL identifiers of listings.
//
// Listing slugs carry a public id suffix ("-ge-000012") derived from the
// database id, which keeps them unique even when two listings share a title.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the width of properties.slug
const MaxLength = 255

var (
	whitespace     = regexp.MustCompile(`\s+`)
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns       = regexp.MustCompile(`-+`)
	publicIDSuffix = regexp.MustCompile(`(?i)-ge-\d{6}$`)
)

// Sanitize lowercases s, folds accents, turns whitespace into dashes and
// drops everything outside [a-z0-9-].
func Sanitize(s string) string {
	s = foldAccents(strings.ToLower(strings.TrimSpace(s)))
	s = whitespace.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// WithPublicID appends the public id suffix for id to base, replacing any
// suffix base already carries.
func WithPublicID(base string, id uint) string {
	base = StripPublicID(Sanitize(base))
	suffix := PublicIDSuffix(id)
	if base == "" {
		base = "property"
	}
	if len(base)+len(suffix) > MaxLength {
		base = strings.TrimRight(base[:MaxLength-len(suffix)], "-")
	}
	return base + suffix
}

// PublicIDSuffix returns "-ge-" followed by the zero padded id
func PublicIDSuffix(id uint) string {
	return fmt.Sprintf("-ge-%06d", id)
}

// StripPublicID removes a trailing public id suffix, case-insensitively
func StripPublicID(s string) string {
	return publicIDSuffix.ReplaceAllString(s, "")
}

// Title derives a display title from a slug: the public id suffix is
// stripped and each dash-separated word gets an upper-case first letter.
func Title(s string) string {
	words := strings.FieldsFunc(StripPublicID(s), func(r rune) bool { return r == '-' })
	if len(words) == 0 {
		return "Property"
	}
	// Casers are stateful and must not be shared between goroutines.
	caser := cases.Title(language.Und, cases.NoLower)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// Temporary returns a unique placeholder slug used between the insert of a
// listing and the moment its id is known.
func Temporary(base string, nonce int64) string {
	prefix := fmt.Sprintf("tmp-%d-", nonce)
	base = StripPublicID(Sanitize(base))
	if len(prefix)+len(base) > MaxLength {
		base = base[:MaxLength-len(prefix)]
	}
	return prefix + base
}
