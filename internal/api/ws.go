package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/speedwagon-io/vitalwatch/internal/collector"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// switchRequest re-targets a detail stream at another patient.
type switchRequest struct {
	PatientID string `json:"patient_id"`
}

// readPump drains client messages until the connection closes. Text messages
// are handed to onMessage.
func readPump(conn *websocket.Conn, onMessage func([]byte)) <-chan struct{} {
	closed := make(chan struct{})
	conn.SetReadLimit(maxMessageSize)

	go func() {
		defer close(closed)
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage && onMessage != nil {
				onMessage(data)
			}
		}
	}()

	return closed
}

func writeFrame(conn *websocket.Conn, frame *model.Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func (s *Server) handleViewStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	view, ok := s.manager.View(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown view "+name)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := view.Store().Subscribe()
	defer unsubscribe()

	closed := readPump(conn, nil)

	for {
		select {
		case <-closed:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := writeFrame(conn, collector.SnapshotFrame(name, st)); err != nil {
				s.log.Debug("websocket write failed", slog.String("view", name), sl.Err(err))
				return
			}
		}
	}
}

// handlePatientStream serves one detail view for the lifetime of the
// connection. Closing the socket deactivates the view.
func (s *Server) handlePatientStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	detail := s.manager.NewDetailView()
	defer detail.Deactivate()

	switches := make(chan string, 1)
	closed := readPump(conn, func(data []byte) {
		var req switchRequest
		if err := json.Unmarshal(data, &req); err != nil || req.PatientID == "" {
			return
		}
		select {
		case <-switches:
		default:
		}
		switches <- req.PatientID
	})

	ctx := r.Context()
	active := detail.Activate(ctx, chi.URLParam(r, "id"))
	updates, unsubscribe := active.Store().Subscribe()
	defer func() { unsubscribe() }()

	for {
		select {
		case <-closed:
			return
		case patientID := <-switches:
			unsubscribe()
			active = detail.Activate(ctx, patientID)
			updates, unsubscribe = active.Store().Subscribe()
		case st, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := writeFrame(conn, collector.DetailFrame(st)); err != nil {
				s.log.Debug("websocket write failed", slog.String("view", collector.ViewDetail), sl.Err(err))
				return
			}
		}
	}
}
