package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestAudit_RecordsEntry(t *testing.T) {
	var buf bytes.Buffer
	var got []AuditEntry
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		got = append(got, entry)
		return nil
	})

	e := echo.New()
	id := "0b6f2a9e-4c6d-4e57-9d1a-0a4b7c3e2f10"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/"+id, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-9")

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	if err := Audit(zerolog.New(&buf), recorder)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(got))
	}
	entry := got[0]
	if entry.Resource != "triage" || entry.RecordID != id {
		t.Errorf("unexpected resource %q / record %q", entry.Resource, entry.RecordID)
	}
	if entry.Action != "read" || entry.StatusCode != http.StatusOK || entry.RequestID != "req-9" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !strings.Contains(buf.String(), `"message":"api_access"`) {
		t.Errorf("expected api_access log line, got %s", buf.String())
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	called := false
	recorder := AuditRecorderFunc(func(AuditEntry) error {
		called = true
		return nil
	})

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	if err := Audit(zerolog.Nop(), recorder)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected /health not to be audited")
	}
}

func TestAudit_CapturesErrorStatus(t *testing.T) {
	var entry AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entry = e
		return fmt.Errorf("store down")
	})

	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/triage", nil), httptest.NewRecorder())
	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid")
	}

	err := Audit(zerolog.New(&buf), recorder)(handler)(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if entry.StatusCode != http.StatusBadRequest || entry.Action != "create" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !strings.Contains(buf.String(), "failed to record audit entry") {
		t.Errorf("expected recorder failure to be logged, got %s", buf.String())
	}
}

func TestSplitResourcePath(t *testing.T) {
	tests := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/v1/triage", "triage", ""},
		{"/api/v1/triage/knowledge-base", "triage", ""},
		{"/api/v1/forecasts/4f0c1a52-8c1e-4d2f-9b51-2d7e6b1e9a33", "forecasts", "4f0c1a52-8c1e-4d2f-9b51-2d7e6b1e9a33"},
		{"/api/v1/", "unknown", ""},
	}

	for _, tt := range tests {
		resource, id := splitResourcePath(tt.path)
		if resource != tt.resource || id != tt.id {
			t.Errorf("splitResourcePath(%q) = %q, %q; want %q, %q", tt.path, resource, id, tt.resource, tt.id)
		}
	}
}
