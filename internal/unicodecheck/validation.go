// Package unicodecheck cleans user-supplied text before it is persisted or
// shown to other room participants. Invisible formatting characters are
// stripped rather than rejected so that pasted text still goes through.
package unicodecheck

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxCombiningRun is the longest run of combining marks kept on one base character
const MaxCombiningRun = 3

// Zero-width characters commonly used in spoofing.
var zeroWidthChars = []rune{
	'\u200B', // Zero Width Space
	'\u200C', // Zero Width Non-Joiner
	'\u200D', // Zero Width Joiner
	'\u200E', // Left-to-Right Mark
	'\u200F', // Right-to-Left Mark
	'\uFEFF', // Byte Order Mark
}

// Bidirectional overrides that reorder displayed text.
var bidiOverrideChars = []rune{
	'\u202A', '\u202B', '\u202C', '\u202D', '\u202E',
	'\u2066', '\u2067', '\u2068', '\u2069',
}

// invisible reports whether r is dropped by Clean regardless of context
func invisible(r rune) bool {
	switch {
	case slices.Contains(zeroWidthChars, r), slices.Contains(bidiOverrideChars, r):
		return true
	case r == '\u3164' || r == '\uFFA0': // Hangul fillers
		return true
	case unicode.IsControl(r) && r != '\n' && r != '\t':
		return true
	case unicode.Is(unicode.Co, r), unicode.Is(unicode.Cs, r):
		return true
	case r >= 0xFDD0 && r <= 0xFDEF, r&0xFFFF == 0xFFFE, r&0xFFFF == 0xFFFF:
		return true
	}
	return false
}

// Clean returns s in NFC form without invisible formatting characters.
// Runs of combining marks longer than MaxCombiningRun are cut short.
func Clean(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	run := 0
	for _, r := range s {
		if invisible(r) {
			continue
		}
		if unicode.Is(unicode.Mn, r) {
			run++
			if run > MaxCombiningRun {
				continue
			}
		} else {
			run = 0
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanName is Clean for single-line labels such as display names and room
// titles: whitespace runs collapse to one space and the result is trimmed.
func CleanName(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}

// Changed reports whether Clean would alter s
func Changed(s string) bool {
	return Clean(s) != s
}
