package model

import (
	"time"

	"github.com/google/uuid"
)

// WellnessSample is a patient self-report on a 1-10 scale. Read-only input
// to the schedule advisor; the booking core never mutates it.
type WellnessSample struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	SleepQuality int       `db:"sleep_quality" json:"sleep_quality"`
	EnergyLevel  int       `db:"energy_level" json:"energy_level"`
	StressLevel  int       `db:"stress_level" json:"stress_level"`
	Digestion    int       `db:"digestion" json:"digestion"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// WellnessSummary averages the most recent samples. Absent data defaults to
// neutral mid-scale values.
type WellnessSummary struct {
	SleepQuality float64 `json:"sleep_quality"`
	EnergyLevel  float64 `json:"energy_level"`
	StressLevel  float64 `json:"stress_level"`
	Digestion    float64 `json:"digestion"`
	SampleCount  int     `json:"sample_count"`
}
