package forecast

import "math"

const (
	outreachEffect = 0.04
	stockEffect    = 0.03
	bedEffect      = 0.05
	lowerFloor     = 0.85
	upperFloor     = 0.92
)

// RunScenarioSimulation re-weights baseline by the intervention levers. Bed
// expansion only applies from the second point on, since the first point is
// the observed month. Month, Actual and Confidence are carried over as-is.
//
// With all levers at zero the forecast values are unchanged, but the band can
// still move: lower becomes max(lower, 0.85*lower) and upper becomes
// max(0.92*upper, forecast+halfBand).
func RunScenarioSimulation(baseline []Point, adj Adjustment) []Point {
	outreach := 1 - outreachEffect*adj.CommunityOutreach
	stock := 1 - stockEffect*adj.StockBoost
	capacity := 1 + bedEffect*adj.BedExpansion

	out := make([]Point, 0, len(baseline))
	for i, p := range baseline {
		combined := outreach * stock
		if i > 0 {
			combined *= capacity
		}
		adjusted := roundHalfUp(p.Forecast * combined)
		halfBand := roundHalfUp((p.Upper - p.Lower) / 2)

		out = append(out, Point{
			Month:      p.Month,
			Actual:     copyFloat(p.Actual),
			Forecast:   adjusted,
			Lower:      math.Max(p.Lower-halfBand*adj.BedExpansion, p.Lower*lowerFloor),
			Upper:      math.Max(p.Upper*upperFloor, adjusted+halfBand),
			Confidence: p.Confidence,
		})
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
