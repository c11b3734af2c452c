// Package sanitize cleans user-supplied text before it is interpolated into AI prompts.
//
// Every function is pure and never fails: missing or malformed input degrades
// to an empty string or an empty map. Lengths are counted in runes.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	textutil "resume-gateway/internal/utils/text"
)

// Input limits applied by the capabilities.
const (
	MaxAIInputLength        = 2000
	MaxSkillsLength         = 500
	MaxJobDescriptionLength = 5000
	MaxJobTitleLength       = 100
	MaxTextLength           = 1000
	MaxArrayItems           = 50
	MaxArrayItemLength      = 100
	MaxResumeFieldLength    = 2000
	MaxEmailLength          = 254
	MaxURLLength            = 2048

	// DefaultColor replaces an invalid theme color.
	DefaultColor = "#3b82f6"
)

// maxStripPasses bounds the fixed-point loop in stripMarkup. Real input
// converges in one or two passes.
const maxStripPasses = 4

var (
	// StrictPolicy drops every element and skips the content of script and style.
	// A Policy is safe for concurrent use once built.
	strict = bluemonday.StrictPolicy()

	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	hexColor       = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	unsafeScheme   = regexp.MustCompile(`(?i)^(javascript|data|vbscript):`)
)

// ForAI prepares free text for a prompt. It removes script and style blocks
// with their content, strips the remaining tags and NUL bytes, collapses runs
// of three or more newlines to two, trims, and truncates to maxLength runes.
//
// ForAI is idempotent: ForAI(ForAI(s, n), n) == ForAI(s, n).
func ForAI(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxAIInputLength
	}

	out := stripMarkup(s)
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)
	return strings.TrimSpace(textutil.Truncate(out, maxLength))
}

// Text strips tags and stray angle brackets, trims, and truncates to maxLength
// runes (MaxTextLength when maxLength is not positive).
func Text(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxTextLength
	}

	out := stripMarkup(s)
	out = strings.NewReplacer("<", "", ">", "").Replace(out)
	out = strings.TrimSpace(out)
	return strings.TrimSpace(textutil.Truncate(out, maxLength))
}

// JobTitle sanitizes a job title or company name.
func JobTitle(s string) string {
	return Text(s, MaxJobTitleLength)
}

// Array keeps the string items of items, sanitizes each to MaxArrayItemLength
// runes, drops the ones that end up empty, and returns at most maxItems
// (MaxArrayItems when maxItems is not positive).
func Array(items []any, maxItems int) []string {
	if maxItems <= 0 {
		maxItems = MaxArrayItems
	}

	out := make([]string, 0, min(len(items), maxItems))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			continue
		}
		if clean := Text(str, MaxArrayItemLength); clean != "" {
			out = append(out, clean)
		}
		if len(out) == maxItems {
			break
		}
	}
	return out
}

// ResumeContent walks a decoded JSON object. String fields are sanitized to
// MaxResumeFieldLength runes; strings inside arrays to MaxTextLength; nested
// objects, including objects inside arrays, are walked recursively. Numbers,
// booleans and nulls are kept. Anything that is not an object yields an empty map.
func ResumeContent(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	out := make(map[string]any, len(obj))
	for key, value := range obj {
		switch val := value.(type) {
		case string:
			out[key] = Text(val, MaxResumeFieldLength)
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				switch it := item.(type) {
				case string:
					items[i] = Text(it, MaxTextLength)
				case map[string]any:
					items[i] = ResumeContent(it)
				default:
					items[i] = it
				}
			}
			out[key] = items
		case map[string]any:
			out[key] = ResumeContent(val)
		default:
			out[key] = val
		}
	}
	return out
}

// Email lower-cases and trims an address and caps it at the RFC 5321 length.
func Email(s string) string {
	return textutil.Truncate(strings.ToLower(strings.TrimSpace(s)), MaxEmailLength)
}

// URL rejects javascript:, data: and vbscript: URLs and caps the length.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || unsafeScheme.MatchString(s) {
		return ""
	}
	return textutil.Truncate(s, MaxURLLength)
}

// HexColor returns color when it is a #rgb or #rrggbb value, DefaultColor otherwise.
func HexColor(color string) string {
	if hexColor.MatchString(color) {
		return color
	}
	return DefaultColor
}

// NormalizeWhitespace replaces every whitespace run with a single space and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// stripMarkup removes NUL bytes and markup until the text stops changing.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	for i := 0; i < maxStripPasses; i++ {
		next := stripOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// stripOnce runs the strict policy over s. Ampersands are escaped first so
// that entity text survives literally instead of being decoded into markup,
// and the policy's own escaping is undone afterwards. Tag-shaped text that the
// HTML tokenizer treated as raw text is removed by pattern.
func stripOnce(s string) string {
	out := strict.Sanitize(strings.ReplaceAll(s, "&", "&amp;"))
	out = html.UnescapeString(out)
	return tagPattern.ReplaceAllString(out, "")
}
