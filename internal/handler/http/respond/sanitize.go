package respond

import (
	"regexp"
)

// Patterns are applied in order, most specific first.
var secretPatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]+`), "sk-ant-****"},
	// Does not match keys that are already masked.
	{regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{10,}`), "sk-****"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{20,}`), "AIza****"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}****"},
	{regexp.MustCompile(`(?i)([?&](?:api_?)?key=)[^&\s"]+`), "${1}****"},
	{regexp.MustCompile(`://([^:/\s]+):([^@\s]+)@`), "://$1:****@"},
}

// SanitizeError returns the error message with API keys, bearer tokens, key
// query parameters and connection string passwords masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, p := range secretPatterns {
		msg = p.pattern.ReplaceAllString(msg, p.replacement)
	}
	return msg
}
