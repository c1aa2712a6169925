package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/speedwagon-io/vitalwatch/internal/classifier"
)

type Summary struct {
	Patients       int                   `json:"patients"`
	WithData       int                   `json:"with_data"`
	Counts         map[RiskLevel]int     `json:"counts"`
	Percentages    map[RiskLevel]float64 `json:"percentages"`
	AvgHeartRate   float64               `json:"avg_heart_rate"`
	AvgSpO2        float64               `json:"avg_spo2"`
	AvgTemperature float64               `json:"avg_temperature"`
	AvgRiskScore   float64               `json:"avg_risk_score"`
	AvgRiskTier    classifier.Status     `json:"avg_risk_tier"`
}

type Alert struct {
	Patient Patient       `json:"patient"`
	Vitals  VitalsReading `json:"vitals"`
}

// Card is one patient tile. Vitals is nil when the patient had no data in
// the snapshot.
type Card struct {
	Patient  Patient                    `json:"patient"`
	Vitals   *VitalsReading             `json:"vitals"`
	Statuses *classifier.MetricStatuses `json:"statuses,omitempty"`
	Worst    classifier.Status          `json:"worst"`
}

// Trend is one patient's recent readings, oldest first, with the change from
// the first reading to the last.
type Trend struct {
	Patient          Patient         `json:"patient"`
	Readings         []VitalsReading `json:"readings"`
	HeartRateDelta   float64         `json:"heart_rate_delta"`
	SpO2Delta        float64         `json:"spo2_delta"`
	TemperatureDelta float64         `json:"temperature_delta"`
	RiskScoreDelta   float64         `json:"risk_score_delta"`
}

type Detail struct {
	PatientID     string                     `json:"patient_id"`
	Name          string                     `json:"name"`
	CurrentVitals *VitalsReading             `json:"current_vitals"`
	Statuses      *classifier.MetricStatuses `json:"statuses,omitempty"`
	History       []VitalsReading            `json:"history"`
}

// Frame is what a view publishes after each cycle.
type Frame struct {
	ID       string    `json:"id"`
	View     string    `json:"view"`
	Phase    string    `json:"phase"`
	Cycle    uint64    `json:"cycle"`
	TakenAt  time.Time `json:"taken_at"`
	Error    string    `json:"error,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
	Alerts   []Alert   `json:"alerts"`
	Cards    []Card    `json:"cards,omitempty"`
	Trends   []Trend   `json:"trends,omitempty"`
	Detail   *Detail   `json:"detail,omitempty"`
}

func NewFrame(view, phase string, cycle uint64, takenAt time.Time) *Frame {
	return &Frame{
		ID:      uuid.New().String(),
		View:    view,
		Phase:   phase,
		Cycle:   cycle,
		TakenAt: takenAt.UTC(),
	}
}

func (f *Frame) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}

func FrameFromJSON(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
