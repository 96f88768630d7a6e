package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newSanitizeEcho(logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.Use(SanitizeWithLogger(logger))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/*", ok)
	e.POST("/*", ok)
	return e
}

func assertJSONMessage(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["message"] == "" {
		t.Errorf("expected a message in %s", rec.Body.String())
	}
}

func TestSanitize_Blocks(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())

	tests := []struct {
		name   string
		target string
		header string
		value  string
	}{
		{"dot dot", "/../../etc/passwd", "", ""},
		{"encoded dot dot", "/%2e%2e/%2e%2e/etc/passwd", "", ""},
		{"double encoded", "/%252e%252e/etc/passwd", "", ""},
		{"null byte in path", "/file%00.txt", "", ""},
		{"null byte in query", "/api/v1/triage?condition=foo%00bar", "", ""},
		{"header CRLF", "/api/v1/triage", "X-Custom", "value\r\nInjected: header"},
		{"header CR", "/api/v1/triage", "X-Custom", "value\rmore"},
		{"header LF", "/api/v1/triage", "X-Custom", "value\nmore"},
		{"oversized header", "/api/v1/triage", "X-Large", strings.Repeat("a", maxHeaderValueSize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header[tt.header] = []string{tt.value}
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			assertJSONMessage(t, rec)
		})
	}
}

func TestSanitize_NormalRequests_PassThrough(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())

	paths := []string{
		"/api/v1/forecasts?disease=malaria&horizon=12",
		"/api/v1/forecasts/reference?scenario=rainfall_shock",
		"/api/v1/triage?severity=emergency&condition=Severe%20Malaria",
		"/api/v1/triage/knowledge-base",
		"/health",
	}

	for _, p := range paths {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("path %s: expected 200, got %d; body: %s", p, rec.Code, rec.Body.String())
		}
	}
}

func TestSanitize_RejectionLogged(t *testing.T) {
	var buf bytes.Buffer
	e := newSanitizeEcho(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?disease=%00", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("request rejected by sanitizer")) {
		t.Errorf("expected a warning in logs, got %s", buf.String())
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/triage?condition=pneumonia", nil))
	if rec.Code != http.StatusOK || buf.Len() != 0 {
		t.Errorf("expected a clean request to pass silently, got %d and %q", rec.Code, buf.String())
	}
}

func TestSanitize_ScriptInjection_Blocked(t *testing.T) {
	e := newSanitizeEcho(zerolog.Nop())

	values := []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"onload=alert(1)",
		"onclick=alert(1)",
	}

	for _, v := range values {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/triage", nil)
		q := req.URL.Query()
		q.Set("condition", v)
		req.URL.RawQuery = q.Encode()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", v, rec.Code)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello\x00world", "helloworld"},
		{"fever\x01\x07 and chills", "fever and chills"},
		{"line1\nline2\tcol\r", "line1\nline2\tcol"},
		{"  headache  ", "headache"},
		{"", ""},
		{"\x00\x00", ""},
		{"fièvre, céphalée", "fièvre, céphalée"},
		{"<b>fever</b> and cough", "fever and cough"},
		{"fever<br/>chills", "fever chills"},
		{"<script>alert(1)</script>headache", "alert(1) headache"},
		{"&lt;i&gt;stiff neck&lt;/i&gt; &amp; rash", "stiff neck & rash"},
		{"temp < 38 and > 36", "temp < 38 and > 36"},
	}

	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
