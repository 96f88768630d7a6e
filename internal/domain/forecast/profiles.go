package forecast

import (
	"sort"
	"strings"
)

// DiseaseProfile holds the static parameters that shape a disease's series.
type DiseaseProfile struct {
	BaseRate         float64 `json:"base_rate"`
	Volatility       float64 `json:"volatility"`
	SeasonalStrength float64 `json:"seasonal_strength"`
	Floor            float64 `json:"floor"`
}

// DefaultDisease is used when a disease key is not in the profile table.
const DefaultDisease = "malaria"

const defaultLocationModifier = 1.0

var diseaseProfiles = map[string]DiseaseProfile{
	"malaria":      {BaseRate: 420, Volatility: 0.18, SeasonalStrength: 0.35, Floor: 120},
	"cholera":      {BaseRate: 160, Volatility: 0.32, SeasonalStrength: 0.45, Floor: 20},
	"measles":      {BaseRate: 95, Volatility: 0.25, SeasonalStrength: 0.30, Floor: 15},
	"lassa":        {BaseRate: 40, Volatility: 0.40, SeasonalStrength: 0.50, Floor: 5},
	"meningitis":   {BaseRate: 70, Volatility: 0.30, SeasonalStrength: 0.40, Floor: 10},
	"tuberculosis": {BaseRate: 210, Volatility: 0.08, SeasonalStrength: 0.05, Floor: 80},
}

// Keyed by upper-case LGA code.
var locationModifiers = map[string]float64{
	"IKEJA":          1.15,
	"ALIMOSHO":       1.30,
	"MUSHIN":         1.22,
	"KANO-MUNICIPAL": 1.25,
	"IBADAN-NORTH":   1.05,
	"ENUGU-EAST":     0.92,
	"MAIDUGURI":      1.35,
	"ABUJA-AMAC":     0.88,
}

var scenarioShifts = map[Scenario]float64{
	ScenarioRainfallShock:     1.12,
	ScenarioSupplyBoost:       0.92,
	ScenarioCommunityOutreach: 0.96,
}

// ProfileFor returns the profile for disease, falling back to malaria when the
// key is unknown. The lookup is an exact match.
func ProfileFor(disease string) DiseaseProfile {
	if p, ok := diseaseProfiles[disease]; ok {
		return p
	}
	return diseaseProfiles[DefaultDisease]
}

// LocationModifier returns the case-insensitive modifier for an LGA code, or
// 1.0 when the code is unknown.
func LocationModifier(location string) float64 {
	if m, ok := locationModifiers[strings.ToUpper(location)]; ok {
		return m
	}
	return defaultLocationModifier
}

// ScenarioShift returns the magnitude multiplier for a scenario. Baseline and
// unrecognised scenarios leave the series unchanged.
func ScenarioShift(s Scenario) float64 {
	if m, ok := scenarioShifts[s]; ok {
		return m
	}
	return 1.0
}

// Diseases returns the supported disease keys, sorted.
func Diseases() []string {
	keys := make([]string, 0, len(diseaseProfiles))
	for k := range diseaseProfiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locations returns the known LGA codes with their modifiers.
func Locations() map[string]float64 {
	out := make(map[string]float64, len(locationModifiers))
	for k, v := range locationModifiers {
		out[k] = v
	}
	return out
}
