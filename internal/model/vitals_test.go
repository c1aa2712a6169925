package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVitalsReading_UnmarshalFlat(t *testing.T) {
	data := []byte(`{
		"patient_id": "P001",
		"heart_rate": 72,
		"spo2": 98,
		"temperature": 36.8,
		"timestamp": 1700000000.5,
		"risk_score": 12.5,
		"risk_level": "Normal",
		"message": "Vitals within normal range"
	}`)

	var r model.VitalsReading
	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, "P001", r.PatientID)
	assert.Equal(t, 72.0, r.HeartRate)
	assert.Equal(t, 98.0, r.SpO2)
	assert.Equal(t, 36.8, r.Temperature)
	assert.Equal(t, 12.5, r.RiskScore)
	assert.Equal(t, model.RiskNormal, r.RiskLevel)
	assert.Equal(t, time.Unix(1700000000, 500000000).UTC(), r.Time())
}

func TestVitalsReading_UnmarshalNested(t *testing.T) {
	data := []byte(`{
		"patient_id": "P002",
		"timestamp": "2023-11-14T22:13:20+00:00",
		"vitals": {"heart_rate": 130, "spo2": 91, "temperature": 38.2},
		"risk": {"score": 64, "level": "Warning", "message": "Monitor closely", "reasons": ["tachycardia"]}
	}`)

	var r model.VitalsReading
	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, "P002", r.PatientID)
	assert.Equal(t, 130.0, r.HeartRate)
	assert.Equal(t, 91.0, r.SpO2)
	assert.Equal(t, 38.2, r.Temperature)
	assert.Equal(t, 64.0, r.RiskScore)
	assert.Equal(t, model.RiskWarning, r.RiskLevel)
	assert.Equal(t, "Monitor closely", r.Message)
	assert.Equal(t, []string{"tachycardia"}, r.Reasons)
	assert.Equal(t, 1700000000.0, r.Timestamp)
}

func TestVitalsReading_UnmarshalBadTimestamp(t *testing.T) {
	var r model.VitalsReading
	err := json.Unmarshal([]byte(`{"patient_id":"P1","timestamp":"yesterday"}`), &r)
	require.Error(t, err)
}

func TestVitalsReading_MarshalIsFlat(t *testing.T) {
	r := model.VitalsReading{PatientID: "P1", HeartRate: 80, RiskLevel: model.RiskCritical}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back model.VitalsReading
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
	assert.Contains(t, string(data), `"risk_level":"Critical"`)
}

func TestRecentHistoryAndNewestFirst(t *testing.T) {
	var history []model.VitalsReading
	for i := 1; i <= 5; i++ {
		history = append(history, model.VitalsReading{Timestamp: float64(i)})
	}

	recent := model.RecentHistory(history, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, 3.0, recent[0].Timestamp)
	assert.Equal(t, 5.0, recent[2].Timestamp)

	newest := model.NewestFirst(recent)
	assert.Equal(t, 5.0, newest[0].Timestamp)
	assert.Equal(t, 3.0, newest[2].Timestamp)
	assert.Equal(t, 3.0, recent[0].Timestamp, "input must not be reordered")

	assert.Len(t, model.RecentHistory(history, 0), 5)
	assert.Len(t, model.RecentHistory(history, 10), 5)
}
