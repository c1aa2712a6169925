package aggregate

import (
	"github.com/speedwagon-io/vitalwatch/internal/classifier"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

// Cards returns one tile per roster patient, in roster order. Patients
// without a reading get a card with nil vitals and an unknown tier.
func Cards(s *model.Snapshot) []model.Card {
	if s == nil {
		return nil
	}

	cards := make([]model.Card, 0, len(s.Patients))
	for _, p := range s.Patients {
		card := model.Card{Patient: p, Worst: classifier.StatusUnknown}

		if r, ok := s.Latest[p.PatientID]; ok {
			statuses := r.Statuses()
			card.Vitals = &r
			card.Statuses = &statuses
			card.Worst = statuses.Worst()
		}

		cards = append(cards, card)
	}

	return cards
}

// DetailView annotates a patient detail with metric tiers and trims the
// history to the last n readings, newest first.
func DetailView(d *model.PatientDetail, n int) *model.Detail {
	if d == nil {
		return nil
	}

	view := &model.Detail{
		PatientID: d.PatientID,
		Name:      d.Name,
		History:   model.NewestFirst(model.RecentHistory(d.History, n)),
	}

	if d.CurrentVitals != nil {
		current := *d.CurrentVitals
		statuses := current.Statuses()
		view.CurrentVitals = &current
		view.Statuses = &statuses
	}

	return view
}
