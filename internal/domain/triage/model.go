package triage

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityEmergency Severity = "emergency"
	SeverityUrgent    Severity = "urgent"
	SeverityRoutine   Severity = "routine"
)

// Vital names a vital sign that a knowledge entry may declare a threshold for.
type Vital string

const (
	VitalTemperature     Vital = "temperature"
	VitalHeartRate       Vital = "heart_rate"
	VitalRespiratoryRate Vital = "respiratory_rate"
	VitalSpO2            Vital = "spo2"
	VitalSystolicBP      Vital = "systolic_bp"
	VitalDiastolicBP     Vital = "diastolic_bp"
)

type Vitals struct {
	Temperature     float64 `json:"temperature"`
	HeartRate       float64 `json:"heart_rate"`
	RespiratoryRate float64 `json:"respiratory_rate"`
	SystolicBP      float64 `json:"systolic_bp"`
	DiastolicBP     float64 `json:"diastolic_bp"`
	SpO2            float64 `json:"spo2"`
}

// Input is the patient presentation submitted for triage.
type Input struct {
	Age             int      `json:"age"`
	Gender          string   `json:"gender"`
	PregnancyStatus string   `json:"pregnancy_status,omitempty"`
	Symptoms        string   `json:"symptoms"`
	Vitals          Vitals   `json:"vitals"`
	OnsetHours      float64  `json:"onset_hours"`
	Comorbidities   []string `json:"comorbidities,omitempty"`
}

type Referral struct {
	Required bool   `json:"required"`
	Facility string `json:"facility,omitempty"`
	Reason   string `json:"reason"`
}

type Differential struct {
	Condition  string `json:"condition"`
	Likelihood int    `json:"likelihood"`
}

// Result is the structured recommendation for one patient.
type Result struct {
	PrimaryCondition string         `json:"primary_condition"`
	Severity         Severity       `json:"severity"`
	Confidence       int            `json:"confidence"`
	MatchedSymptoms  []string       `json:"matched_symptoms"`
	RedFlags         []string       `json:"red_flags"`
	CarePlan         []string       `json:"care_plan"`
	Referral         Referral       `json:"referral"`
	Medications      []string       `json:"medications"`
	Monitoring       []string       `json:"monitoring"`
	Differentials    []Differential `json:"differentials"`
	Narrative        string         `json:"narrative"`
}

// Assessment maps to the triage_assessment table.
type Assessment struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PrimaryCondition string    `db:"primary_condition" json:"primary_condition"`
	Severity         Severity  `db:"severity" json:"severity"`
	Confidence       int       `db:"confidence" json:"confidence"`
	Input            Input     `db:"input" json:"input"`
	Result           Result    `db:"result" json:"result"`
	CreatedBy        *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
