package model

type Patient struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Room      string `json:"room"`
	Status    string `json:"status"`
}

// PatientDetail is the single-patient payload served by GET /patients/{id}.
type PatientDetail struct {
	PatientID     string          `json:"patient_id"`
	Name          string          `json:"name"`
	CurrentVitals *VitalsReading  `json:"current_vitals"`
	History       []VitalsReading `json:"history"`
}
