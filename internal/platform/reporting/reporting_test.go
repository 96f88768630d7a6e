package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

type fakeRows struct {
	fields []string
	data   [][]interface{}
	pos    int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) Scan(...interface{}) error     { return fmt.Errorf("not supported") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		out[i] = pgconn.FieldDescription{Name: f}
	}
	return out
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Values() ([]interface{}, error) {
	return r.data[r.pos-1], nil
}

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	gotSQL  string
	gotArgs []interface{}
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	q.gotSQL = sql
	q.gotArgs = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func evaluate(t *testing.T, q Querier, id, since string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(q)
	h.now = func() time.Time { return fixedNow }

	e := echo.New()
	target := "/api/v1/reports/measures/" + id + "/evaluate"
	if since != "" {
		target += "?since=" + since
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.EvaluateMeasure(c); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			rec.Code = he.Code
			return rec
		}
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestPredefinedMeasures(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range PredefinedMeasures {
		if m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is missing a name or description", m.ID)
		}
		if !strings.Contains(m.SQL, "created_at >= $1") {
			t.Errorf("measure %s does not filter on the window start", m.ID)
		}
		if seen[m.ID] {
			t.Errorf("duplicate measure id %s", m.ID)
		}
		seen[m.ID] = true
		if FindMeasure(m.ID) == nil {
			t.Errorf("FindMeasure(%s) returned nil", m.ID)
		}
	}
	if FindMeasure("patient-count") != nil {
		t.Error("expected nil for an unknown measure")
	}
}

func TestEvaluateMeasure(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		fields: []string{"severity", "total"},
		data: [][]interface{}{
			{"routine", int64(12)},
			{"emergency", int64(3)},
		},
	}}

	rec := evaluate(t, q, "triage-severity-mix", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(q.gotArgs) != 1 || !q.gotArgs[0].(time.Time).Equal(fixedNow.Add(-defaultWindow)) {
		t.Errorf("expected the default 30-day window, got %v", q.gotArgs)
	}

	var report MeasureReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.MeasureID != "triage-severity-mix" || len(report.Results) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Results[1]["severity"] != "emergency" || report.Results[1]["total"] != float64(3) {
		t.Errorf("unexpected row %v", report.Results[1])
	}
}

func TestEvaluateMeasure_Since(t *testing.T) {
	tests := []struct {
		since  string
		status int
		want   time.Time
	}{
		{"2026-09-01", http.StatusOK, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-10-01T08:00:00Z", http.StatusOK, time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)},
		{"2027-01-01", http.StatusBadRequest, time.Time{}},
		{"last-week", http.StatusBadRequest, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.since, func(t *testing.T) {
			q := &fakeQuerier{rows: &fakeRows{}}
			rec := evaluate(t, q, "forecast-runs-by-disease", tt.since)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK && !q.gotArgs[0].(time.Time).Equal(tt.want) {
				t.Errorf("expected window start %s, got %v", tt.want, q.gotArgs[0])
			}
		})
	}
}

func TestEvaluateMeasure_Errors(t *testing.T) {
	if rec := evaluate(t, &fakeQuerier{}, "nonexistent", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := evaluate(t, &fakeQuerier{err: fmt.Errorf("relation does not exist")}, "triage-top-conditions", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestListMeasures_HidesSQL(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/reports/measures", nil), rec)
	if err := NewHandler(&fakeQuerier{}).ListMeasures(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "SELECT") {
		t.Errorf("expected SQL to be omitted, got %s", rec.Body.String())
	}
}
