package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
)

// Number of forecast-only points appended after the historical rows.
const futurePoints = 3

const noDataNarrative = "No data found in the uploaded dataset. Provide a header line followed by monthly rows."

const (
	InsightAverageCases = "Average monthly cases"
	InsightTotalVisits  = "Total facility visits"
	InsightNextQuarter  = "Projected next quarter"
)

type Analyzer struct {
	engine *forecast.Engine
}

func NewAnalyzer(engine *forecast.Engine) *Analyzer {
	return &Analyzer{engine: engine}
}

var defaultAnalyzer = NewAnalyzer(forecast.NewEngine())

// Analyse summarises ds and continues its case column with a forecast.
func Analyse(ds *Parsed, disease string, scenario forecast.Scenario) *Analysis {
	return defaultAnalyzer.Analyse(ds, disease, scenario)
}

func (a *Analyzer) Analyse(ds *Parsed, disease string, scenario forecast.Scenario) *Analysis {
	if ds == nil || len(ds.Headers) == 0 {
		return &Analysis{
			Insights:   []Insight{},
			LineSeries: []forecast.Point{},
			Narrative:  noDataNarrative,
		}
	}
	if disease == "" {
		disease = forecast.DefaultDisease
	}
	if scenario == "" {
		scenario = forecast.ScenarioBaseline
	}

	monthCol := findColumn(ds.Headers, "month", 0)
	caseCol := findColumn(ds.Headers, "malaria", 1)
	visitCol := findColumn(ds.Headers, "visit", 2)

	var months []string
	var cases []float64
	visits := 0.0
	for _, row := range ds.Rows {
		c, ok := row[caseCol].Float()
		if !ok {
			continue
		}
		cases = append(cases, c)
		months = append(months, row[monthCol].String())
		if v, ok := row[visitCol].Float(); ok {
			visits += v
		}
	}
	n := len(cases)

	sum := 0.0
	for _, c := range cases {
		sum += c
	}
	average := sum / float64(max(n, 1))

	delta := 0.0
	if n >= 2 {
		prev := cases[n-2]
		if prev == 0 {
			prev = 1
		}
		delta = (cases[n-1] - cases[n-2]) / prev * 100
	}

	seed := forecast.Seed{
		Disease:  disease,
		Horizon:  max(forecast.MinHorizon, n+futurePoints),
		Scenario: scenario,
	}
	if n > 0 {
		last := cases[n-1]
		seed.LastActual = &last
	}
	projected := a.engine.Generate(seed)

	series := make([]forecast.Point, 0, n+futurePoints)
	for i := 0; i < n; i++ {
		actual := cases[i]
		month := months[i]
		if month == "" {
			month = projected[i].Month
		}
		series = append(series, forecast.Point{
			Month:      month,
			Actual:     &actual,
			Forecast:   projected[i].Forecast,
			Lower:      projected[i].Lower,
			Upper:      projected[i].Upper,
			Confidence: projected[i].Confidence,
		})
	}
	nextQuarter := 0.0
	for i := n; i < n+futurePoints; i++ {
		p := projected[i]
		series = append(series, forecast.Point{
			Month:      p.Month,
			Forecast:   p.Forecast,
			Lower:      p.Lower,
			Upper:      p.Upper,
			Confidence: p.Confidence,
		})
		nextQuarter += p.Forecast
	}

	change := round1(delta)
	return &Analysis{
		Insights: []Insight{
			{Label: InsightAverageCases, Value: round1(average), Change: &change},
			{Label: InsightTotalVisits, Value: visits},
			{Label: InsightNextQuarter, Value: nextQuarter},
		},
		LineSeries:  series,
		NextQuarter: nextQuarter,
		Narrative:   narrative(n, disease, scenario, average, visits, change, nextQuarter),
	}
}

// findColumn returns the first header containing keyword, ignoring case,
// else the header at fallback. It returns "" when neither exists.
func findColumn(headers []string, keyword string, fallback int) string {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), keyword) {
			return h
		}
	}
	if fallback < len(headers) {
		return headers[fallback]
	}
	return ""
}

func narrative(n int, disease string, scenario forecast.Scenario, average, visits, change, nextQuarter float64) string {
	if n == 0 {
		return fmt.Sprintf("The dataset has no numeric case rows. Under the %s scenario, %s is projected at %.0f cases over the next quarter.",
			scenario, disease, nextQuarter)
	}
	return fmt.Sprintf("Across %d months, %s cases averaged %.1f per month with %.0f facility visits in total. "+
		"The latest month changed by %+.1f%% on the month before. "+
		"Under the %s scenario, %.0f cases are projected over the next quarter.",
		n, disease, average, visits, change, scenario, nextQuarter)
}

func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
