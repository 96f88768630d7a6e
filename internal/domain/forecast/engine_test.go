package forecast

import (
	"testing"
	"time"
)

func fixedEngine() *Engine {
	return NewEngine(WithClock(func() time.Time {
		return time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)
	}))
}

func floatPtr(v float64) *float64 { return &v }

func TestGenerate_KnownSeries(t *testing.T) {
	e := fixedEngine()
	got := e.Generate(Seed{Disease: "malaria", Location: "IKEJA", Horizon: 6, Scenario: ScenarioBaseline})

	want := []struct {
		month                  string
		forecast, lower, upper float64
		confidence             int
	}{
		{"October 2026", 468, 412, 524, 93},
		{"November 2026", 568, 500, 636, 90},
		{"December 2026", 626, 551, 701, 88},
		{"January 2027", 639, 562, 716, 84},
		{"February 2027", 687, 605, 769, 95},
		{"March 2027", 540, 475, 605, 92},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i, w := range want {
		p := got[i]
		if p.Month != w.month {
			t.Errorf("point %d: month = %q, want %q", i, p.Month, w.month)
		}
		if p.Forecast != w.forecast || p.Lower != w.lower || p.Upper != w.upper {
			t.Errorf("point %d: got (%v, %v, %v), want (%v, %v, %v)",
				i, p.Forecast, p.Lower, p.Upper, w.forecast, w.lower, w.upper)
		}
		if p.Confidence != w.confidence {
			t.Errorf("point %d: confidence = %d, want %d", i, p.Confidence, w.confidence)
		}
	}
}

func TestGenerate_LastActualOverridesBaseline(t *testing.T) {
	e := fixedEngine()
	got := e.Generate(Seed{
		Disease:    "cholera",
		Location:   "KANO-MUNICIPAL",
		Horizon:    8,
		Scenario:   ScenarioRainfallShock,
		LastActual: floatPtr(250),
	})
	wantForecast := []float64{297, 370, 444, 357, 428, 352, 258, 191}
	if len(got) != len(wantForecast) {
		t.Fatalf("expected %d points, got %d", len(wantForecast), len(got))
	}
	for i, w := range wantForecast {
		if got[i].Forecast != w {
			t.Errorf("point %d: forecast = %v, want %v", i, got[i].Forecast, w)
		}
	}
	if got[0].Actual == nil || *got[0].Actual != 250 {
		t.Errorf("expected first actual 250, got %v", got[0].Actual)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	e := fixedEngine()
	seed := Seed{Disease: "measles", Location: "alimosho", Horizon: 18, Scenario: ScenarioCommunityOutreach}
	a := e.Generate(seed)
	b := e.Generate(seed)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Forecast != b[i].Forecast || a[i].Lower != b[i].Lower ||
			a[i].Upper != b[i].Upper || a[i].Confidence != b[i].Confidence || a[i].Month != b[i].Month {
			t.Fatalf("point %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerate_DrawsIndependentOfHorizon(t *testing.T) {
	e := fixedEngine()
	short := e.Generate(Seed{Disease: "lassa", Location: "ENUGU-EAST", Horizon: 6, Scenario: ScenarioSupplyBoost})
	long := e.Generate(Seed{Disease: "lassa", Location: "ENUGU-EAST", Horizon: 24, Scenario: ScenarioSupplyBoost})
	for i := range short {
		if short[i].Forecast != long[i].Forecast || short[i].Confidence != long[i].Confidence {
			t.Errorf("point %d differs between horizons: %+v vs %+v", i, short[i], long[i])
		}
	}
}

func TestGenerate_HorizonClamp(t *testing.T) {
	e := fixedEngine()
	tests := []struct {
		horizon int
		want    int
	}{
		{-4, 6},
		{0, 6},
		{1, 6},
		{6, 6},
		{7, 7},
		{24, 24},
	}
	for _, tt := range tests {
		got := e.Generate(Seed{Disease: "malaria", Location: "IKEJA", Horizon: tt.horizon})
		if len(got) != tt.want {
			t.Errorf("horizon %d: expected %d points, got %d", tt.horizon, tt.want, len(got))
		}
	}
}

func TestGenerate_Invariants(t *testing.T) {
	e := fixedEngine()
	diseases := append(Diseases(), "dengue")
	locations := []string{"IKEJA", "maiduguri", "ABUJA-AMAC", "NOWHERE", ""}
	for _, d := range diseases {
		floor := ProfileFor(d).Floor
		for _, loc := range locations {
			for _, sc := range append(Scenarios, "unknown") {
				series := e.Generate(Seed{Disease: d, Location: loc, Horizon: 15, Scenario: sc})
				for i, p := range series {
					if !(p.Lower <= p.Forecast && p.Forecast <= p.Upper) {
						t.Errorf("%s/%s/%s point %d: band out of order %+v", d, loc, sc, i, p)
					}
					if p.Confidence < 78 || p.Confidence > 96 {
						t.Errorf("%s/%s/%s point %d: confidence %d out of range", d, loc, sc, i, p.Confidence)
					}
					if p.Forecast < floor {
						t.Errorf("%s/%s/%s point %d: forecast %v below floor %v", d, loc, sc, i, p.Forecast, floor)
					}
					if i == 0 && p.Actual == nil {
						t.Errorf("%s/%s/%s: first point has no actual", d, loc, sc)
					}
					if i > 0 && p.Actual != nil {
						t.Errorf("%s/%s/%s point %d: unexpected actual %v", d, loc, sc, i, *p.Actual)
					}
				}
			}
		}
	}
}

func TestGenerate_UnknownDiseaseUsesMalariaProfile(t *testing.T) {
	e := fixedEngine()
	got := e.Generate(Seed{Disease: "dengue", Location: "ikeja", Horizon: 6})
	want := 420 * 1.15
	if got[0].Actual == nil || *got[0].Actual != want {
		t.Fatalf("expected baseline %v, got %v", want, got[0].Actual)
	}
}

func TestGenerate_UnknownLocationUsesUnitModifier(t *testing.T) {
	e := fixedEngine()
	got := e.Generate(Seed{Disease: "cholera", Location: "ATLANTIS", Horizon: 6})
	if got[0].Actual == nil || *got[0].Actual != 160 {
		t.Fatalf("expected baseline 160, got %v", got[0].Actual)
	}
}

func TestGenerate_MonthLabelsRollYear(t *testing.T) {
	e := fixedEngine()
	got := e.Generate(Seed{Disease: "malaria", Horizon: 14})
	checks := map[int]string{
		0:  "October 2026",
		2:  "December 2026",
		3:  "January 2027",
		12: "October 2027",
		13: "November 2027",
	}
	for i, want := range checks {
		if got[i].Month != want {
			t.Errorf("point %d: month = %q, want %q", i, got[i].Month, want)
		}
	}
}

func TestScenarioShift(t *testing.T) {
	tests := []struct {
		scenario Scenario
		want     float64
	}{
		{ScenarioBaseline, 1.0},
		{ScenarioRainfallShock, 1.12},
		{ScenarioSupplyBoost, 0.92},
		{ScenarioCommunityOutreach, 0.96},
		{"drought", 1.0},
		{"", 1.0},
	}
	for _, tt := range tests {
		if got := ScenarioShift(tt.scenario); got != tt.want {
			t.Errorf("ScenarioShift(%q) = %v, want %v", tt.scenario, got, tt.want)
		}
	}
}

func TestLocationModifier_CaseInsensitive(t *testing.T) {
	if got := LocationModifier("kano-municipal"); got != 1.25 {
		t.Errorf("expected 1.25, got %v", got)
	}
	if got := LocationModifier("Unknown"); got != 1.0 {
		t.Errorf("expected 1.0 for unknown location, got %v", got)
	}
}
