package forecast

import (
	"math"
	"testing"
)

func sampleSeries() []Point {
	return []Point{
		{Month: "October 2026", Actual: floatPtr(480), Forecast: 468, Lower: 412, Upper: 524, Confidence: 93},
		{Month: "November 2026", Forecast: 568, Lower: 500, Upper: 636, Confidence: 90},
		{Month: "December 2026", Forecast: 626, Lower: 551, Upper: 701, Confidence: 88},
	}
}

func TestRunScenarioSimulation_NoOpKeepsForecast(t *testing.T) {
	base := fixedEngine().Generate(Seed{Disease: "malaria", Location: "IKEJA", Horizon: 12})
	got := RunScenarioSimulation(base, Adjustment{})
	if len(got) != len(base) {
		t.Fatalf("expected %d points, got %d", len(base), len(got))
	}
	for i := range base {
		if got[i].Forecast != base[i].Forecast {
			t.Errorf("point %d: forecast %v, want %v", i, got[i].Forecast, base[i].Forecast)
		}
		if got[i].Lower != base[i].Lower {
			t.Errorf("point %d: lower %v, want %v", i, got[i].Lower, base[i].Lower)
		}
		halfBand := roundHalfUp((base[i].Upper - base[i].Lower) / 2)
		wantUpper := math.Max(0.92*base[i].Upper, base[i].Forecast+halfBand)
		if got[i].Upper != wantUpper {
			t.Errorf("point %d: upper %v, want %v", i, got[i].Upper, wantUpper)
		}
	}
}

func TestRunScenarioSimulation_Levers(t *testing.T) {
	got := RunScenarioSimulation(sampleSeries(), Adjustment{BedExpansion: 2, CommunityOutreach: 3, StockBoost: 1})

	// outreach 0.88, stock 0.97, capacity 1.10
	wantForecast := []float64{
		roundHalfUp(468 * 0.88 * 0.97),
		roundHalfUp(568 * 0.88 * 0.97 * 1.10),
		roundHalfUp(626 * 0.88 * 0.97 * 1.10),
	}
	for i, w := range wantForecast {
		if got[i].Forecast != w {
			t.Errorf("point %d: forecast %v, want %v", i, got[i].Forecast, w)
		}
	}

	// point 0: halfBand 56, lower max(412-112, 350.2) = 350.2
	if math.Abs(got[0].Lower-412*0.85) > 1e-9 {
		t.Errorf("point 0: lower %v, want %v", got[0].Lower, 412*0.85)
	}
	if want := math.Max(524*0.92, wantForecast[0]+56); math.Abs(got[0].Upper-want) > 1e-9 {
		t.Errorf("point 0: upper %v, want %v", got[0].Upper, want)
	}
}

func TestRunScenarioSimulation_SmallBedExpansionWidensLower(t *testing.T) {
	got := RunScenarioSimulation(sampleSeries(), Adjustment{BedExpansion: 0.5})
	// halfBand 68 for point 1: 500-34 = 466 beats 425
	if got[1].Lower != 466 {
		t.Errorf("expected lower 466, got %v", got[1].Lower)
	}
}

func TestRunScenarioSimulation_PreservesFields(t *testing.T) {
	in := sampleSeries()
	got := RunScenarioSimulation(in, Adjustment{CommunityOutreach: 5})
	for i := range in {
		if got[i].Month != in[i].Month {
			t.Errorf("point %d: month %q, want %q", i, got[i].Month, in[i].Month)
		}
		if got[i].Confidence != in[i].Confidence {
			t.Errorf("point %d: confidence %d, want %d", i, got[i].Confidence, in[i].Confidence)
		}
	}
	if got[0].Actual == nil || *got[0].Actual != 480 {
		t.Fatalf("expected actual carried over, got %v", got[0].Actual)
	}
	if got[0].Actual == in[0].Actual {
		t.Error("expected actual to be copied, not aliased")
	}
	if got[1].Actual != nil {
		t.Errorf("expected nil actual on point 1, got %v", *got[1].Actual)
	}
}

func TestRunScenarioSimulation_Empty(t *testing.T) {
	got := RunScenarioSimulation(nil, Adjustment{BedExpansion: 1})
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d points", len(got))
	}
}
