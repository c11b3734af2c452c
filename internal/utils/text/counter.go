// Package text provides rune-aware helpers for user-supplied text.
// Limits on prompt inputs are expressed in characters, not bytes, so résumé
// text in any script is measured and cut the same way.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
//
// Examples:
//
//	CountRunes("hello")     // returns 5
//	CountRunes("こんにちは") // returns 5
//	CountRunes("Hello👋")   // returns 6
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate returns at most maxRunes runes of text. It never splits a
// multi-byte character. A non-positive maxRunes yields "".
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if len(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i]
		}
		n++
	}
	return text
}
