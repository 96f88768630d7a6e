package middleware

import (
	"html"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Query values are filter terms (disease, scenario, severity, condition),
	// never markup.
	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

	markupPattern = regexp.MustCompile(`(?s)</?[a-zA-Z][^<>]*>`)
	spaceRun      = regexp.MustCompile(` {2,}`)
)

// SanitizeWithLogger rejects requests carrying path traversal, NUL bytes,
// header injection or script in query parameters with a 400. Rejections are
// logged at warn level.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if reason := inspectRequest(c.Request()); reason != "" {
				logger.Warn().
					Str("path", c.Request().URL.Path).
					Str("remote_ip", c.RealIP()).
					Str("reason", reason).
					Msg("request rejected by sanitizer")
				return jsonError(c, http.StatusBadRequest, reason)
			}
			return next(c)
		}
	}
}

// inspectRequest returns why req must be rejected, or "" when it is clean.
func inspectRequest(req *http.Request) string {
	for _, p := range []string{req.URL.Path, req.URL.RawPath} {
		switch {
		case containsPathTraversal(p):
			return "Path traversal detected"
		case containsNullByte(p):
			return "Null byte injection detected"
		}
	}

	for name, values := range req.Header {
		for _, v := range values {
			if len(v) > maxHeaderValueSize {
				return "Header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "Header injection detected: " + name
			}
		}
	}

	for key, values := range req.URL.Query() {
		for _, v := range values {
			if containsNullByte(key) || containsNullByte(v) {
				return "Null byte injection detected in query parameter"
			}
			if scriptPattern.MatchString(key) || scriptPattern.MatchString(v) {
				return "Script injection detected in query parameter"
			}
		}
	}
	return ""
}

// containsPathTraversal matches ".." raw, percent-encoded or double-encoded.
func containsPathTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

// SanitizeString cleans free text such as triage symptoms. HTML entities are
// decoded before markup tags are replaced by a space, so encoded tags are
// removed too. Control characters other than newline, carriage return and tab
// are dropped, space runs collapsed and the result trimmed.
func SanitizeString(input string) string {
	text := markupPattern.ReplaceAllString(html.UnescapeString(input), " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(b.String(), " "))
}
