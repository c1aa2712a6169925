package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// BackendAPI talks to the patient monitoring backend over its JSON API.
type BackendAPI struct {
	log    *slog.Logger
	client *resty.Client
}

func NewBackendAPI(log *slog.Logger, baseURL string, timeout time.Duration) *BackendAPI {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &BackendAPI{
		log:    log,
		client: client,
	}
}

func (a *BackendAPI) Name() string {
	return "backend_api"
}

func (a *BackendAPI) Close() error {
	a.client.GetClient().CloseIdleConnections()
	return nil
}

func (a *BackendAPI) ListPatients(ctx context.Context) ([]model.Patient, error) {
	var patients []model.Patient
	if err := a.getJSON(ctx, a.client.R(), "/patients/", &patients); err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}
	return patients, nil
}

func (a *BackendAPI) GetPatient(ctx context.Context, patientID string) (*model.PatientDetail, error) {
	req := a.client.R().SetPathParam("id", patientID)

	var detail model.PatientDetail
	if err := a.getJSON(ctx, req, "/patients/{id}", &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch patient %s: %w", patientID, err)
	}
	return &detail, nil
}

func (a *BackendAPI) LatestVitals(ctx context.Context, patientID string) (*model.VitalsReading, error) {
	req := a.client.R().SetPathParam("id", patientID)

	var reading *model.VitalsReading
	if err := a.getJSON(ctx, req, "/vitals/latest/{id}", &reading); err != nil {
		return nil, fmt.Errorf("failed to fetch latest vitals for %s: %w", patientID, err)
	}
	// a null body means the patient has no reading yet
	if reading == nil {
		return nil, fmt.Errorf("no latest vitals for %s: %w", patientID, ErrNotFound)
	}
	return reading, nil
}

// VitalsHistory returns up to limit readings, oldest first. The backend may
// answer with a bare array or with a {patient_id, count, history} object.
func (a *BackendAPI) VitalsHistory(ctx context.Context, patientID string, limit int) ([]model.VitalsReading, error) {
	req := a.client.R().SetPathParam("id", patientID)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage
	if err := a.getJSON(ctx, req, "/vitals/history/{id}", &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", patientID, err)
	}

	history, err := decodeHistory(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", patientID, err)
	}
	return history, nil
}

// Health probes GET /health. Any 2xx is healthy.
func (a *BackendAPI) Health(ctx context.Context) error {
	resp, err := a.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("backend unhealthy: %w", &StatusError{Code: resp.StatusCode()})
	}
	return nil
}

func (a *BackendAPI) getJSON(ctx context.Context, req *resty.Request, path string, out any) error {
	resp, err := req.SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if !resp.IsSuccess() {
		return &StatusError{
			Code: resp.StatusCode(),
			Body: string(bytes.TrimSpace(resp.Body())),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		a.log.Debug("undecodable response body",
			slog.String("path", resp.Request.URL),
			slog.Int("size", len(resp.Body())),
		)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func decodeHistory(raw json.RawMessage) ([]model.VitalsReading, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var history []model.VitalsReading
		if err := json.Unmarshal(raw, &history); err != nil {
			return nil, err
		}
		return history, nil
	}

	var wrapped struct {
		History []model.VitalsReading `json:"history"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.History, nil
}
