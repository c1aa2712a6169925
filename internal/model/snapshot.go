package model

// Snapshot is the result of one poll cycle. It is rebuilt from scratch on
// every cycle; a patient whose fetch failed has no entry in Latest.
type Snapshot struct {
	Patients []Patient                  `json:"patients"`
	Latest   map[string]VitalsReading   `json:"latest"`
	History  map[string][]VitalsReading `json:"history,omitempty"`
}

func NewSnapshot(patients []Patient) *Snapshot {
	return &Snapshot{
		Patients: patients,
		Latest:   make(map[string]VitalsReading, len(patients)),
	}
}

func (s *Snapshot) Reading(patientID string) (VitalsReading, bool) {
	if s == nil {
		return VitalsReading{}, false
	}
	r, ok := s.Latest[patientID]
	return r, ok
}
