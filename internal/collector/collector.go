package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

var errNoReading = errors.New("no reading")

// Source is the patient/vitals data source polled by the views.
type Source interface {
	ListPatients(ctx context.Context) ([]model.Patient, error)
	GetPatient(ctx context.Context, patientID string) (*model.PatientDetail, error)
	LatestVitals(ctx context.Context, patientID string) (*model.VitalsReading, error)
	VitalsHistory(ctx context.Context, patientID string, limit int) ([]model.VitalsReading, error)
	Name() string
	Close() error
}

// RosterCollector builds a snapshot of every patient on the roster and their
// latest vitals. With a positive history limit it also pulls each patient's
// recent history.
type RosterCollector struct {
	log          *slog.Logger
	source       Source
	fetchTimeout time.Duration
	historyLimit int
}

func NewRosterCollector(log *slog.Logger, source Source, fetchTimeout time.Duration, historyLimit int) *RosterCollector {
	return &RosterCollector{
		log:          log,
		source:       source,
		fetchTimeout: fetchTimeout,
		historyLimit: historyLimit,
	}
}

type patientData struct {
	patientID string
	latest    model.VitalsReading
	history   []model.VitalsReading
}

// Collect runs one cycle. A roster failure fails the cycle; a per-patient
// failure only drops that patient from the snapshot.
func (c *RosterCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	patients, err := c.source.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	var wg sync.WaitGroup
	results := make(chan *patientData, len(patients))

	for i := range patients {
		wg.Add(1)
		go func(patientID string) {
			defer wg.Done()

			data, err := c.collectPatient(ctx, patientID)
			if err != nil {
				c.log.Debug("failed to collect vitals",
					slog.String("patient_id", patientID),
					sl.Err(err),
				)
				return
			}
			results <- data
		}(patients[i].PatientID)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	snapshot := model.NewSnapshot(patients)
	if c.historyLimit > 0 {
		snapshot.History = make(map[string][]model.VitalsReading, len(patients))
	}

	for data := range results {
		snapshot.Latest[data.patientID] = data.latest
		if snapshot.History != nil {
			snapshot.History[data.patientID] = data.history
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (c *RosterCollector) collectPatient(ctx context.Context, patientID string) (*patientData, error) {
	fetchCtx, cancel := c.fetchContext(ctx)
	defer cancel()

	latest, err := c.source.LatestVitals(fetchCtx, patientID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, errNoReading
	}

	data := &patientData{
		patientID: patientID,
		latest:    *latest,
	}

	if c.historyLimit > 0 {
		history, err := c.source.VitalsHistory(fetchCtx, patientID, c.historyLimit)
		if err != nil {
			return nil, err
		}
		data.history = history
	}

	return data, nil
}

func (c *RosterCollector) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.fetchTimeout)
}
