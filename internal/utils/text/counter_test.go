package text_test

import (
	"strings"
	"testing"

	"resume-gateway/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ASCII text", input: "Staff Engineer", expected: 14},
		{name: "Japanese", input: "こんにちは世界", expected: 7},
		{name: "accented", input: "Café Résumé", expected: 11},
		{name: "emoji", input: "Hello👋", expected: 6},
		{name: "flag is two runes", input: "🇯🇵", expected: 2},
		{name: "Cyrillic", input: "Привет", expected: 6},
		{name: "whitespace", input: " \t\n ", expected: 4},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := text.CountRunes(tt.input)
			if result != tt.expected {
				t.Errorf("CountRunes(%q) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

// TestCountRunes_MatchesGoBuiltin tests that CountRunes matches Go's built-in rune counting
func TestCountRunes_MatchesGoBuiltin(t *testing.T) {
	tests := []string{
		"hello",
		"こんにちは",
		"hello世界",
		"Hello👋",
		"",
		"   ",
		"🚀✨🤖💡",
		"人工知能技術の発展により、私たちの生活は大きく変化しています。",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			// Expected value from Go's built-in rune counting
			expected := len([]rune(tt))

			// Act
			result := text.CountRunes(tt)

			// Assert
			if result != expected {
				t.Errorf("CountRunes(%q) = %d, expected %d (Go built-in)", tt, result, expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "shorter than limit", input: "Go developer", max: 100, expected: "Go developer"},
		{name: "exact limit", input: "hello", max: 5, expected: "hello"},
		{name: "ASCII cut", input: "Senior Engineer", max: 6, expected: "Senior"},
		{name: "multi-byte cut", input: "こんにちは世界", max: 5, expected: "こんにちは"},
		{name: "emoji not split", input: "ok🚀🚀", max: 3, expected: "ok🚀"},
		{name: "zero limit", input: "hello", max: 0, expected: ""},
		{name: "negative limit", input: "hello", max: -1, expected: ""},
		{name: "empty input", input: "", max: 10, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := text.Truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, expected %q", tt.input, tt.max, result, tt.expected)
			}
			if text.CountRunes(result) > tt.max && tt.max >= 0 {
				t.Errorf("Truncate(%q, %d) returned %d runes", tt.input, tt.max, text.CountRunes(result))
			}
		})
	}
}

// BenchmarkTruncate measures truncation of a long prompt field.
func BenchmarkTruncate(b *testing.B) {
	long := strings.Repeat("Led migration of billing services to Go. ", 200)
	for i := 0; i < b.N; i++ {
		text.Truncate(long, 2000)
	}
}
