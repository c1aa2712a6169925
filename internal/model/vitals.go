package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/classifier"
)

type RiskLevel string

const (
	RiskNormal   RiskLevel = "Normal"
	RiskWarning  RiskLevel = "Warning"
	RiskCritical RiskLevel = "Critical"
)

// VitalsReading is one immutable measurement. RiskScore and RiskLevel are
// computed by the backend and passed through untouched.
type VitalsReading struct {
	PatientID   string    `json:"patient_id"`
	HeartRate   float64   `json:"heart_rate"`
	SpO2        float64   `json:"spo2"`
	Temperature float64   `json:"temperature"`
	Timestamp   float64   `json:"timestamp"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Message     string    `json:"message"`
	Reasons     []string  `json:"reasons,omitempty"`
}

// Time converts the Unix-seconds timestamp into a UTC time.
func (r VitalsReading) Time() time.Time {
	sec, frac := math.Modf(r.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func (r VitalsReading) Statuses() classifier.MetricStatuses {
	return classifier.ClassifyVitals(r.HeartRate, r.SpO2, r.Temperature)
}

// UnmarshalJSON accepts both the flat reading and the nested
// {vitals:{...}, risk:{...}} form with an ISO-8601 timestamp.
func (r *VitalsReading) UnmarshalJSON(data []byte) error {
	var raw struct {
		PatientID   string          `json:"patient_id"`
		HeartRate   float64         `json:"heart_rate"`
		SpO2        float64         `json:"spo2"`
		Temperature float64         `json:"temperature"`
		Timestamp   json.RawMessage `json:"timestamp"`
		RiskScore   float64         `json:"risk_score"`
		RiskLevel   RiskLevel       `json:"risk_level"`
		Message     string          `json:"message"`
		Reasons     []string        `json:"reasons"`
		Vitals      *struct {
			HeartRate   float64 `json:"heart_rate"`
			SpO2        float64 `json:"spo2"`
			Temperature float64 `json:"temperature"`
		} `json:"vitals"`
		Risk *struct {
			Score   float64   `json:"score"`
			Level   RiskLevel `json:"level"`
			Message string    `json:"message"`
			Reasons []string  `json:"reasons"`
		} `json:"risk"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	*r = VitalsReading{
		PatientID:   raw.PatientID,
		HeartRate:   raw.HeartRate,
		SpO2:        raw.SpO2,
		Temperature: raw.Temperature,
		Timestamp:   ts,
		RiskScore:   raw.RiskScore,
		RiskLevel:   raw.RiskLevel,
		Message:     raw.Message,
		Reasons:     raw.Reasons,
	}

	if raw.Vitals != nil {
		r.HeartRate = raw.Vitals.HeartRate
		r.SpO2 = raw.Vitals.SpO2
		r.Temperature = raw.Vitals.Temperature
	}
	if raw.Risk != nil {
		r.RiskScore = raw.Risk.Score
		r.RiskLevel = raw.Risk.Level
		r.Message = raw.Risk.Message
		r.Reasons = raw.Risk.Reasons
	}

	return nil
}

func parseTimestamp(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return 0, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		return float64(t.UnixNano()) / 1e9, nil
	}

	var ts float64
	if err := json.Unmarshal(raw, &ts); err != nil {
		return 0, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return ts, nil
}

// RecentHistory returns the last n readings of an ascending history.
func RecentHistory(history []VitalsReading, n int) []VitalsReading {
	if n <= 0 || len(history) <= n {
		return append([]VitalsReading(nil), history...)
	}
	return append([]VitalsReading(nil), history[len(history)-n:]...)
}

// NewestFirst returns a reversed copy of an ascending history.
func NewestFirst(history []VitalsReading) []VitalsReading {
	out := make([]VitalsReading, len(history))
	for i, r := range history {
		out[len(history)-1-i] = r
	}
	return out
}
