// Package normalize canonicalises user-supplied tag names and category names.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TagName converts raw input to the canonical stored form of a tag name.
//
// Rules:
//  1. NFKC-fold compatibility characters (full-width letters, ligatures)
//  2. Lowercase
//  3. Trim surrounding whitespace
//  4. Replace inner whitespace runs with a single underscore
//
// Punctuation, namespace prefixes ("artist:") and wildcards are preserved.
//
//	"Slow Burn"  → "slow_burn"
//	"ＡＢＣ"      → "abc"
//	"Artist:Foo" → "artist:foo"
func TagName(input string) string {
	s := norm.NFKC.String(input)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), "_")
}

// Keyword lowercases and collapses whitespace so that script verbs such as
// "CREATE   ALIAS" compare equal to "create alias".
func Keyword(input string) string {
	return strings.Join(strings.Fields(strings.ToLower(input)), " ")
}

// IsValidTagName reports whether name is usable as a stored tag name.
// Names must be non-empty, contain no whitespace or control characters and
// must not start with a character that the script grammar treats as a prefix.
func IsValidTagName(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case '-', '~':
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
