package collector_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/speedwagon-io/vitalwatch/internal/model"
)

var errUnavailable = errors.New("backend unavailable")

// fakeSource is an in-memory stand-in for the backend API.
type fakeSource struct {
	mu          sync.Mutex
	patients    []model.Patient
	latest      map[string]model.VitalsReading
	history     map[string][]model.VitalsReading
	details     map[string]*model.PatientDetail
	rosterErr   error
	failLatest  map[string]bool
	failHistory map[string]bool
	emptyLatest map[string]bool

	latestCalls atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		latest:      make(map[string]model.VitalsReading),
		history:     make(map[string][]model.VitalsReading),
		details:     make(map[string]*model.PatientDetail),
		failLatest:  make(map[string]bool),
		failHistory: make(map[string]bool),
		emptyLatest: make(map[string]bool),
	}
}

func (f *fakeSource) addPatient(id string, r model.VitalsReading) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.PatientID = id
	f.patients = append(f.patients, model.Patient{PatientID: id, Name: "Patient " + id, Room: "ICU-" + id})
	f.latest[id] = r
	f.history[id] = []model.VitalsReading{r}
}

func (f *fakeSource) setRosterErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterErr = err
}

func (f *fakeSource) setFailLatest(id string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLatest[id] = fail
}

func (f *fakeSource) ListPatients(ctx context.Context) ([]model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return append([]model.Patient(nil), f.patients...), nil
}

func (f *fakeSource) GetPatient(ctx context.Context, patientID string) (*model.PatientDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.details[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", patientID, errUnavailable)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeSource) LatestVitals(ctx context.Context, patientID string) (*model.VitalsReading, error) {
	f.latestCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failLatest[patientID] {
		return nil, errUnavailable
	}
	if f.emptyLatest[patientID] {
		return nil, nil
	}
	r, ok := f.latest[patientID]
	if !ok {
		return nil, errUnavailable
	}
	return &r, nil
}

func (f *fakeSource) VitalsHistory(ctx context.Context, patientID string, limit int) ([]model.VitalsReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failHistory[patientID] {
		return nil, errUnavailable
	}
	return model.RecentHistory(f.history[patientID], limit), nil
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Close() error { return nil }
