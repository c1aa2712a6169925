package aggregate

import (
	"sort"

	"github.com/speedwagon-io/vitalwatch/internal/model"
)

// Alerts lists every patient whose latest reading is not Normal, highest
// risk score first. Equal scores keep roster order.
func Alerts(s *model.Snapshot) []model.Alert {
	if s == nil {
		return nil
	}

	alerts := make([]model.Alert, 0)
	for _, p := range s.Patients {
		r, ok := s.Latest[p.PatientID]
		if !ok || r.RiskLevel == model.RiskNormal {
			continue
		}
		alerts = append(alerts, model.Alert{Patient: p, Vitals: r})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Vitals.RiskScore > alerts[j].Vitals.RiskScore
	})

	return alerts
}
