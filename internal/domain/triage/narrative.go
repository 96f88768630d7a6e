package triage

import (
	"fmt"
	"strings"
)

func buildNarrative(v Vitals, r Result) string {
	var b strings.Builder

	if len(r.MatchedSymptoms) == 0 {
		b.WriteString("Presentation is non-specific")
	} else {
		b.WriteString("Presentation matches ")
		b.WriteString(strings.Join(r.MatchedSymptoms, ", "))
	}
	fmt.Fprintf(&b, ", with temperature %.1f°C, heart rate %.0f bpm and SpO2 %.0f%%.",
		v.Temperature, v.HeartRate, v.SpO2)

	if len(r.RedFlags) > 0 {
		fmt.Fprintf(&b, " Red flags: %s.", strings.Join(r.RedFlags, ", "))
	}

	fmt.Fprintf(&b, " Most likely %s (confidence %d%%), triaged as %s.",
		r.PrimaryCondition, r.Confidence, r.Severity)

	if r.Referral.Required {
		fmt.Fprintf(&b, " Refer to %s for further management.", r.Referral.Facility)
	} else {
		b.WriteString(" Stabilise and manage at the current facility with scheduled follow-up.")
	}
	return b.String()
}

var severityMonitoring = map[Severity][]string{
	SeverityEmergency: {"Continuous pulse oximetry and cardiac monitoring", "Vital signs every 15 minutes"},
	SeverityUrgent:    {"Vital signs every hour", "Fluid input/output chart"},
	SeverityRoutine:   {"Vital signs every 4 hours", "Review within 48 hours or sooner if symptoms worsen"},
}

var flagMonitoring = map[string]string{
	FlagLowOxygen:    "Titrate oxygen to SpO2 >= 94%",
	FlagHypertensive: "Blood pressure every 15 minutes",
	FlagHighFever:    "Temperature every 2 hours",
	FlagPregnancy:    "Fetal heart rate and obstetric review",
}

// monitoringPlan lists severity-driven observations first, then one item per
// red flag that has an associated observation.
func monitoringPlan(sev Severity, flags []string, comorbidities []string) []string {
	plan := append([]string(nil), severityMonitoring[sev]...)
	for _, f := range flags {
		if m, ok := flagMonitoring[f]; ok {
			plan = append(plan, m)
		}
	}
	for _, c := range comorbidities {
		if strings.Contains(strings.ToLower(c), "diabet") {
			plan = append(plan, "Capillary blood glucose every 6 hours")
			break
		}
	}
	return plan
}
