package aggregate

import "github.com/speedwagon-io/vitalwatch/internal/model"

// Trends returns the recent history of every patient that has one, in roster
// order. A snapshot collected without history yields nil.
func Trends(s *model.Snapshot) []model.Trend {
	if s == nil || s.History == nil {
		return nil
	}

	trends := make([]model.Trend, 0, len(s.History))
	for _, p := range s.Patients {
		history := s.History[p.PatientID]
		if len(history) == 0 {
			continue
		}

		first, last := history[0], history[len(history)-1]
		trends = append(trends, model.Trend{
			Patient:          p,
			Readings:         history,
			HeartRateDelta:   last.HeartRate - first.HeartRate,
			SpO2Delta:        last.SpO2 - first.SpO2,
			TemperatureDelta: last.Temperature - first.Temperature,
			RiskScoreDelta:   last.RiskScore - first.RiskScore,
		})
	}

	return trends
}
