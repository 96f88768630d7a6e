package forecast

import (
	"time"

	"github.com/google/uuid"
)

// Scenario is an intervention or hazard assumption applied to a forecast.
type Scenario string

const (
	ScenarioBaseline          Scenario = "baseline"
	ScenarioRainfallShock     Scenario = "rainfall_shock"
	ScenarioSupplyBoost       Scenario = "supply_boost"
	ScenarioCommunityOutreach Scenario = "community_outreach"
)

// Scenarios lists the supported scenarios in display order.
var Scenarios = []Scenario{
	ScenarioBaseline,
	ScenarioRainfallShock,
	ScenarioSupplyBoost,
	ScenarioCommunityOutreach,
}

// Seed describes a forecast request. Horizon values below 6 are raised to 6.
type Seed struct {
	Disease    string   `json:"disease"`
	Location   string   `json:"location"`
	Horizon    int      `json:"horizon"`
	Scenario   Scenario `json:"scenario"`
	LastActual *float64 `json:"last_actual,omitempty"`
}

// Point is one month of a forecast series.
type Point struct {
	Month      string   `json:"month"`
	Actual     *float64 `json:"actual"`
	Forecast   float64  `json:"forecast"`
	Lower      float64  `json:"lower"`
	Upper      float64  `json:"upper"`
	Confidence int      `json:"confidence"`
}

// FacilityLoad is the current and projected bed load of one facility.
type FacilityLoad struct {
	Facility    string `json:"facility"`
	Current     int    `json:"current"`
	Forecast    int    `json:"forecast"`
	Capacity    int    `json:"capacity"`
	Utilization int    `json:"utilization"`
}

// Adjustment holds the intervention levers for a scenario simulation.
type Adjustment struct {
	BedExpansion      float64 `json:"bed_expansion"`
	CommunityOutreach float64 `json:"community_outreach"`
	StockBoost        float64 `json:"stock_boost"`
}

// Run maps to the forecast_run table.
type Run struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Disease   string    `db:"disease" json:"disease"`
	Location  string    `db:"location" json:"location"`
	Horizon   int       `db:"horizon" json:"horizon"`
	Scenario  Scenario  `db:"scenario" json:"scenario"`
	Series    []Point   `db:"series" json:"series"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
