package triage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func TestHandler_Assess(t *testing.T) {
	h, e := newTestHandler()
	body := `{"age":4,"gender":"female","symptoms":"fever with convulsions and vomiting","vitals":{"temperature":40.1,"heart_rate":150,"respiratory_rate":40,"systolic_bp":90,"diastolic_bp":60,"spo2":91},"onset_hours":10}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Assess(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if a.Result.PrimaryCondition != "Severe Malaria" {
		t.Errorf("expected Severe Malaria, got %s", a.Result.PrimaryCondition)
	}
	if a.Result.Severity != SeverityEmergency {
		t.Errorf("expected emergency, got %s", a.Result.Severity)
	}
	if !a.Result.Referral.Required {
		t.Error("expected referral")
	}
}

func TestHandler_Assess_StripsMarkup(t *testing.T) {
	h, e := newTestHandler()
	body := `{"age":30,"symptoms":"<b>body aches</b> with chills &lt;i&gt;since Monday&lt;/i&gt;","comorbidities":["<em>asthma</em>"],"vitals":{"temperature":38.2}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Assess(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if a.Input.Symptoms != "body aches with chills since Monday" {
		t.Errorf("expected markup stripped, got %q", a.Input.Symptoms)
	}
	if len(a.Input.Comorbidities) != 1 || a.Input.Comorbidities[0] != "asthma" {
		t.Errorf("expected comorbidity markup stripped, got %v", a.Input.Comorbidities)
	}
	found := false
	for _, m := range a.Result.MatchedSymptoms {
		if m == "body aches" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected body aches to match after stripping, got %v", a.Result.MatchedSymptoms)
	}
}

func TestHandler_Assess_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"age":-2}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Assess(c)
	if err == nil {
		t.Fatal("expected error for negative age")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetAssessment_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetAssessment(c)
	if err == nil {
		t.Fatal("expected error for not found")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListAssessments(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Assess(nil, Input{Symptoms: "fever", Vitals: normalVitals(), OnsetHours: 48}, "")

	req := httptest.NewRequest(http.MethodGet, "/?severity=routine", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListAssessments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Uncomplicated Malaria") {
		t.Errorf("expected assessment in listing: %s", rec.Body.String())
	}
}

func TestHandler_GetKnowledgeBase(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetKnowledgeBase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []knowledgeSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != len(knowledgeBase) {
		t.Errorf("expected %d entries, got %d", len(knowledgeBase), len(entries))
	}
	if entries[0].Name != "Uncomplicated Malaria" {
		t.Errorf("expected declaration order, got %s first", entries[0].Name)
	}
}
