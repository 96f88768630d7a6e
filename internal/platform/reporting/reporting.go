package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/emmanuel-123tech/africareai/internal/platform/auth"
)

// MeasureDefinition is a named aggregate over stored forecast runs or triage
// assessments. Every query takes the window start as $1.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	Since       time.Time                `json:"since"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

const defaultWindow = 30 * 24 * time.Hour

var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "triage-severity-mix",
		Name:        "Triage Severity Mix",
		Description: "Assessments per severity level",
		SQL:         `SELECT severity, COUNT(*) AS total FROM triage_assessment WHERE created_at >= $1 GROUP BY severity ORDER BY total DESC`,
	},
	{
		ID:          "triage-top-conditions",
		Name:        "Top Triage Conditions",
		Description: "Ten most frequent primary conditions with mean confidence",
		SQL:         `SELECT primary_condition, COUNT(*) AS total, ROUND(AVG(confidence))::int AS mean_confidence FROM triage_assessment WHERE created_at >= $1 GROUP BY primary_condition ORDER BY total DESC, primary_condition LIMIT 10`,
	},
	{
		ID:          "forecast-runs-by-disease",
		Name:        "Forecast Runs by Disease",
		Description: "Forecast runs per disease and scenario",
		SQL:         `SELECT disease, scenario, COUNT(*) AS total FROM forecast_run WHERE created_at >= $1 GROUP BY disease, scenario ORDER BY total DESC, disease, scenario`,
	},
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type Handler struct {
	db  Querier
	now func() time.Time
}

func NewHandler(db Querier) *Handler {
	return &Handler{db: db, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole(auth.RoleAdmin, auth.RoleAnalyst))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure runs a measure over records created since ?since=
// (RFC 3339 or YYYY-MM-DD), defaulting to the last 30 days.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	now := h.now().UTC()
	since, err := parseSince(c.QueryParam("since"), now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := collectRows(c.Request().Context(), h.db, measure.SQL, since)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		Since:       since,
		GeneratedAt: now,
		Results:     results,
	})
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Add(-defaultWindow), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.After(now) {
				return time.Time{}, fmt.Errorf("since must not be in the future")
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("since must be RFC 3339 or YYYY-MM-DD")
}

func collectRows(ctx context.Context, db Querier, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
