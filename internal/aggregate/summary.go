// Package aggregate derives dashboard figures from a snapshot. Everything is
// recomputed from scratch on each call so it always matches the snapshot it
// was given.
package aggregate

import (
	"github.com/speedwagon-io/vitalwatch/internal/classifier"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

var riskLevels = []model.RiskLevel{model.RiskNormal, model.RiskWarning, model.RiskCritical}

// Summarize counts readings by risk level and averages the vitals across
// every patient with data. An empty snapshot yields zeros.
func Summarize(s *model.Snapshot) *model.Summary {
	summary := &model.Summary{
		Counts:      make(map[model.RiskLevel]int, len(riskLevels)),
		Percentages: make(map[model.RiskLevel]float64, len(riskLevels)),
	}
	for _, level := range riskLevels {
		summary.Counts[level] = 0
		summary.Percentages[level] = 0
	}

	if s == nil {
		summary.AvgRiskTier = classifier.RiskScoreTier(0)
		return summary
	}

	summary.Patients = len(s.Patients)

	var hr, spo2, temp, risk float64
	// roster order keeps the float sums reproducible across calls
	for _, p := range s.Patients {
		r, ok := s.Latest[p.PatientID]
		if !ok {
			continue
		}
		summary.WithData++
		if _, known := summary.Counts[r.RiskLevel]; known {
			summary.Counts[r.RiskLevel]++
		}
		hr += r.HeartRate
		spo2 += r.SpO2
		temp += r.Temperature
		risk += r.RiskScore
	}

	if n := float64(summary.WithData); n > 0 {
		summary.AvgHeartRate = hr / n
		summary.AvgSpO2 = spo2 / n
		summary.AvgTemperature = temp / n
		summary.AvgRiskScore = risk / n

		for _, level := range riskLevels {
			summary.Percentages[level] = float64(summary.Counts[level]) / n * 100
		}
	}

	summary.AvgRiskTier = classifier.RiskScoreTier(summary.AvgRiskScore)
	return summary
}
