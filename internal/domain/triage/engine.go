package triage

import (
	"sort"
	"strings"
)

const (
	baseConfidence     = 60
	confidencePerPoint = 8
	maxConfidence      = 95

	likelihoodPerPoint = 12
	minLikelihood      = 10
	maxLikelihood      = 70

	differentialCount = 3

	phraseWeight = 2
	tokenWeight  = 1
)

// Red flag wording. Referenced by tests and the monitoring plan.
const (
	FlagLowOxygen    = "Low oxygen saturation"
	FlagHypertensive = "Hypertensive crisis suspected"
	FlagHighFever    = "High fever"
	FlagRapidOnset   = "Rapid symptom onset"
	FlagPregnancy    = "Pregnancy - monitor for obstetric complications"
)

const hypertensiveEmergency = "Hypertensive Emergency"

type candidate struct {
	entry    *KnowledgeEntry
	score    int
	severity Severity
	matched  []string
}

// TriagePatient scores every knowledge entry against the presentation and
// assembles a recommendation for the highest ranked one. Ties keep knowledge
// base order. It never fails: an empty presentation resolves to the first
// entry with a score of zero.
func TriagePatient(in Input) Result {
	text := strings.ToLower(in.Symptoms)
	tokens := tokenize(text)

	candidates := make([]candidate, len(knowledgeBase))
	for i := range knowledgeBase {
		e := &knowledgeBase[i]
		score, matched := scoreEntry(e, text, tokens)
		candidates[i] = candidate{
			entry:    e,
			score:    score,
			severity: EscalateSeverity(*e, in.Vitals),
			matched:  matched,
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	primary := candidates[0]
	flags := redFlags(in, primary)

	differentials := make([]Differential, 0, differentialCount)
	for _, c := range candidates[1:] {
		if len(differentials) == differentialCount {
			break
		}
		differentials = append(differentials, Differential{
			Condition:  c.entry.Name,
			Likelihood: clamp(c.score*likelihoodPerPoint, minLikelihood, maxLikelihood),
		})
	}

	result := Result{
		PrimaryCondition: primary.entry.Name,
		Severity:         primary.severity,
		Confidence:       min(maxConfidence, baseConfidence+primary.score*confidencePerPoint),
		MatchedSymptoms:  primary.matched,
		RedFlags:         flags,
		CarePlan:         append([]string(nil), primary.entry.CarePlan...),
		Referral: Referral{
			Required: primary.entry.Referral.Required,
			Facility: primary.entry.Referral.Facility,
			Reason:   primary.entry.Referral.Reason,
		},
		Medications:   append([]string(nil), primary.entry.Medications...),
		Monitoring:    monitoringPlan(primary.severity, flags, in.Comorbidities),
		Differentials: differentials,
	}
	result.Narrative = buildNarrative(in.Vitals, result)
	return result
}

// tokenize splits on every run of characters outside a-z.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func scoreEntry(e *KnowledgeEntry, text string, tokens map[string]struct{}) (int, []string) {
	score := 0
	matched := []string{}
	for _, kw := range e.Keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				score += phraseWeight
				matched = append(matched, kw)
			}
			continue
		}
		if _, ok := tokens[kw]; ok {
			score += tokenWeight
			matched = append(matched, kw)
		}
	}
	return score, matched
}

// EscalateSeverity applies the entry's vital thresholds in a fixed order.
// Each triggered rule overwrites the running severity, so the last rule to
// fire decides the outcome, even when that is less severe than an earlier one.
func EscalateSeverity(e KnowledgeEntry, v Vitals) Severity {
	sev := e.BaseSeverity
	if t, ok := e.Thresholds[VitalTemperature]; ok && v.Temperature >= t+1 {
		sev = SeverityUrgent
	}
	if t, ok := e.Thresholds[VitalHeartRate]; ok && v.HeartRate >= t+10 {
		sev = SeverityUrgent
	}
	if t, ok := e.Thresholds[VitalRespiratoryRate]; ok && v.RespiratoryRate >= t+5 {
		sev = SeverityEmergency
	}
	if t, ok := e.Thresholds[VitalSpO2]; ok && v.SpO2 <= t-2 {
		sev = SeverityEmergency
	}
	if t, ok := e.Thresholds[VitalSystolicBP]; ok && v.SystolicBP >= t {
		sev = SeverityEmergency
	}
	if t, ok := e.Thresholds[VitalDiastolicBP]; ok && v.DiastolicBP >= t {
		sev = SeverityEmergency
	}
	return sev
}

func redFlags(in Input, primary candidate) []string {
	flags := []string{}
	if in.Vitals.SpO2 <= 92 {
		flags = append(flags, FlagLowOxygen)
	}
	if in.Vitals.SystolicBP >= 180 {
		flags = append(flags, FlagHypertensive)
	}
	if in.Vitals.Temperature >= 39.5 {
		flags = append(flags, FlagHighFever)
	}
	if in.OnsetHours <= 24 && primary.score >= 3 {
		flags = append(flags, FlagRapidOnset)
	}
	if in.PregnancyStatus == "pregnant" && primary.entry.Name != hypertensiveEmergency {
		flags = append(flags, FlagPregnancy)
	}
	return flags
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
