package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/emmanuel-123tech/africareai/pkg/seedrand"
)

// MinHorizon is the shortest series the engine produces.
const MinHorizon = 6

const (
	bandFraction   = 0.12
	driftCentre    = 0.45
	minConfidence  = 78
	confidenceSpan = 18
)

// Engine generates synthetic forecast series. The zero value is not usable;
// use NewEngine.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to label months.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine that labels months from the wall clock unless
// WithClock is given.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

var defaultEngine = NewEngine()

// GenerateForecast produces a series for seed using the wall clock for labels.
func GenerateForecast(seed Seed) []Point {
	return defaultEngine.Generate(seed)
}

// Generate produces max(seed.Horizon, 6) points. Identical (disease, location,
// scenario) triples replay the same draws regardless of horizon or last actual.
func (e *Engine) Generate(seed Seed) []Point {
	horizon := seed.Horizon
	if horizon < MinHorizon {
		horizon = MinHorizon
	}

	profile := ProfileFor(seed.Disease)
	modifier := LocationModifier(seed.Location)
	shift := ScenarioShift(seed.Scenario)
	src := seedrand.New(seed.Disease + seed.Location + string(seed.Scenario))

	baseline := profile.BaseRate * modifier
	if seed.LastActual != nil {
		baseline = *seed.LastActual
	}

	start := monthStart(e.now())
	points := make([]Point, 0, horizon)
	for i := 0; i < horizon; i++ {
		seasonal := 1 + math.Sin(2*math.Pi*float64(i%12)/12)*profile.SeasonalStrength
		drift := 1 + (src.Float64()-driftCentre)*profile.Volatility
		projected := roundHalfUp(math.Max(profile.Floor, baseline*seasonal*drift*shift))
		confidence := int(roundHalfUp(minConfidence + src.Float64()*confidenceSpan))
		band := projected * bandFraction

		p := Point{
			Month:      monthLabel(start, i),
			Forecast:   projected,
			Lower:      roundHalfUp(projected - band),
			Upper:      roundHalfUp(projected + band),
			Confidence: confidence,
		}
		if i == 0 {
			actual := baseline
			p.Actual = &actual
		}
		points = append(points, p)
	}
	return points
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthLabel(start time.Time, offset int) string {
	m := start.AddDate(0, offset, 0)
	return fmt.Sprintf("%s %d", m.Month(), m.Year())
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
