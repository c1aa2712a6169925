package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

// DetailCollector fetches one patient with current vitals and history.
type DetailCollector struct {
	log          *slog.Logger
	source       Source
	historyLimit int
}

func NewDetailCollector(log *slog.Logger, source Source, historyLimit int) *DetailCollector {
	return &DetailCollector{
		log:          log,
		source:       source,
		historyLimit: historyLimit,
	}
}

func (c *DetailCollector) Collect(ctx context.Context, patientID string) (*model.PatientDetail, error) {
	detail, err := c.source.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient detail: %w", err)
	}

	if len(detail.History) == 0 && detail.CurrentVitals != nil && c.historyLimit > 0 {
		history, err := c.source.VitalsHistory(ctx, patientID, c.historyLimit)
		if err != nil {
			c.log.Debug("failed to fetch history",
				slog.String("patient_id", patientID),
				sl.Err(err),
			)
		} else {
			detail.History = history
		}
	}

	return detail, nil
}
