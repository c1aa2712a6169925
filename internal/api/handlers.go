package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/speedwagon-io/vitalwatch/internal/aggregate"
	"github.com/speedwagon-io/vitalwatch/internal/collector"
	"github.com/speedwagon-io/vitalwatch/internal/collector/adapters"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
	"github.com/speedwagon-io/vitalwatch/internal/poller"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	view, ok := s.manager.View(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown view "+name)
		return
	}

	writeJSON(w, http.StatusOK, collector.SnapshotFrame(name, view.Store().Get()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	if _, ok := s.manager.View(name); !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown view "+name)
		return
	}

	if err := s.manager.Refresh(name); err != nil {
		writeError(w, http.StatusConflict, "view_inactive", err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// readySnapshot returns the list view snapshot, or writes the loading/error
// response the page shows instead.
func (s *Server) readySnapshot(w http.ResponseWriter) (*model.Snapshot, bool) {
	view, _ := s.manager.View(collector.ViewList)
	st := view.Store().Get()

	switch st.Phase {
	case poller.PhaseReady:
		return st.Data, true
	case poller.PhaseError:
		writeError(w, http.StatusBadGateway, "fetch_failed",
			"failed to fetch data from the backend; is the backend running?")
	default:
		writeError(w, http.StatusServiceUnavailable, "loading", "")
	}
	return nil, false
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.readySnapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Summarize(snapshot))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.readySnapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Alerts(snapshot))
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.readySnapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Cards(snapshot))
}

func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	detail, err := s.manager.FetchDetail(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, adapters.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "patient not found")
			return
		}
		s.log.Error("failed to fetch patient", slog.String("patient_id", patientID), sl.Err(err))
		writeError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch patient data")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
