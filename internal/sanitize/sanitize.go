// Package sanitize normalizes remote file and folder names into safe local
// filesystem names.
package sanitize

import (
	"strings"
	"unicode"
)

// invalidChars are characters that are not allowed in filenames on at least
// one supported platform.
const invalidChars = `/\:*?"<>|`

// maxNameLength caps sanitized names to stay under common filesystem limits.
const maxNameLength = 240

// Clean returns a filesystem-safe version of the given name.
// Invalid characters are replaced with underscores, control characters are
// dropped, and leading/trailing dots and spaces are trimmed.
func Clean(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7F:
			// Control characters are dropped entirely
		case strings.ContainsRune(invalidChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), " .")
	if len(cleaned) > maxNameLength {
		cleaned = cleaned[:maxNameLength]
	}
	return cleaned
}

// emojiRanges covers the Unicode blocks commonly used for emoji and
// decorative symbols in shared-folder names.
var emojiRanges = []struct{ lo, hi rune }{
	{0x1F000, 0x1FAFF}, // Mahjong tiles through symbols & pictographs extended
	{0x2600, 0x27BF},   // Miscellaneous symbols, dingbats
	{0x2B00, 0x2BFF},   // Miscellaneous symbols and arrows (includes ⭐)
	{0xFE00, 0xFE0F},   // Variation selectors
	{0x200D, 0x200D},   // Zero-width joiner
	{0x20E3, 0x20E3},   // Combining enclosing keycap
	{0x2190, 0x21FF},   // Arrows
	{0x2300, 0x23FF},   // Miscellaneous technical (clocks etc.)
}

// isEmoji reports whether the rune falls in an emoji or symbol range.
func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng.lo && r <= rng.hi {
			return true
		}
	}
	return unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r)
}

// StripEmoji removes emoji and symbol runes from the name. The result may be
// empty; callers should fall back to Fallback in that case.
func StripEmoji(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if !isEmoji(r) {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// Fallback synthesizes a folder name from a content id when sanitizing
// produced an empty string.
func Fallback(contentID string) string {
	id := contentID
	if len(id) > 8 {
		id = id[:8]
	}
	return "folder_" + id
}

// DefaultRenamePatterns are the prefix patterns stripped when matching a
// remote folder name against an on-disk folder that the provider later
// renamed. Order matters: longer, more specific patterns come first.
func DefaultRenamePatterns() []string {
	return []string{
		"new files in ",
		"new files in",
		"new files ",
	}
}

// Normalize reduces a folder name to a canonical form for rename matching:
// emoji are stripped, the given prefix patterns are removed (first match
// wins), and the result is lowercased and trimmed.
func Normalize(name string, patterns []string) string {
	n := strings.TrimSpace(StripEmoji(name))
	lower := strings.ToLower(n)

	for _, pat := range patterns {
		pat = strings.ToLower(pat)
		if pat == "" {
			continue
		}
		if strings.HasPrefix(lower, pat) {
			lower = strings.TrimSpace(lower[len(pat):])
			break
		}
	}

	return lower
}
