// Package extract turns HTML snapshots captured by the browser session into
// structured business records. Every parser here is a pure function over an
// HTML string so the fallback chains can be exercised against fixtures
// without a browser.
package extract

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	invisibleRunes = regexp.MustCompile("[\u200B-\u200D\uFEFF\u200E\u200F\u202F\u2026]")
	dashVariants   = regexp.MustCompile("[\u2013\u2014]")
	lineBreaks     = regexp.MustCompile(`[\n\r\t]+`)
	multiSpace     = regexp.MustCompile(`\s+`)
	leadingJunk    = regexp.MustCompile(`^[^\pL\pN+]+`)
)

// CleanText normalizes scraped text: zero-width and directional characters
// are stripped, en/em dashes unified to "-", and whitespace collapsed.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = invisibleRunes.ReplaceAllString(s, "")
	s = dashVariants.ReplaceAllString(s, "-")
	s = lineBreaks.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripLeading additionally drops leading punctuation left behind by icon
// glyphs in info-panel rows. "+" survives so international phone numbers
// keep their prefix.
func stripLeading(s string) string {
	return leadingJunk.ReplaceAllString(s, "")
}

// turkish characters and common accents folded to ASCII for slugs.
var slugFold = strings.NewReplacer(
	"ç", "c", "Ç", "c",
	"ğ", "g", "Ğ", "g",
	"ı", "i", "İ", "i",
	"ö", "o", "Ö", "o",
	"ş", "s", "Ş", "s",
	"ü", "u", "Ü", "u",
	"â", "a", "î", "i", "û", "u",
	"é", "e", "è", "e", "á", "a", "à", "a",
)

var nonSlug = regexp.MustCompile(`[^a-z0-9-]+`)
var multiDash = regexp.MustCompile(`-{2,}`)

// Slugify produces the normalized key used for City/District/Category rows.
// The same input always yields the same slug.
func Slugify(s string) string {
	s = slugFold.Replace(strings.TrimSpace(s))
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlug.ReplaceAllString(s, "")
	s = multiDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Fingerprint derives the stable business identity from the trimmed display
// name and district. It is computed from the cheap list-view name so a store
// lookup can skip the detail-page visit for already-known businesses.
func Fingerprint(name, district string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(name) + strings.TrimSpace(district)))
	return hex.EncodeToString(sum[:])
}

// digitsOnly strips everything but decimal digits.
var nonDigit = regexp.MustCompile(`\D`)

func digitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}
