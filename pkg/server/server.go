// Package server exposes the pipeline over HTTP: POST /api/run streams the
// run's events as SSE, GET /api/health reports readiness, and /metrics
// serves Prometheus metrics.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oracle/pkg/eventlog"
	"oracle/pkg/extract"
	"oracle/pkg/logx"
	"oracle/pkg/metrics"
	"oracle/pkg/pipeline"
	"oracle/pkg/sse"
)

// RunRequest is the payload starting a run. LinkedInPDF is the target's
// profile document, base64 encoded. Resume is optional plain text;
// ResumePDF, when present, is extracted and replaces Resume.
type RunRequest struct {
	LinkedInPDF string `json:"linkedin_pdf"`
	Resume      string `json:"resume"`
	ResumePDF   string `json:"resume_pdf"`
}

// Server wires the orchestrator to the HTTP transport.
type Server struct {
	orchestrator *pipeline.Orchestrator
	extractor    extract.Extractor
	recorder     metrics.Recorder
	events       *eventlog.Writer
	model        string
	logger       *logx.Logger
}

// NewServer creates a server. events may be nil to disable event logging;
// recorder may be nil to disable metrics.
func NewServer(orchestrator *pipeline.Orchestrator, extractor extract.Extractor, recorder metrics.Recorder, events *eventlog.Writer, model string) *Server {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Server{
		orchestrator: orchestrator,
		extractor:    extractor,
		recorder:     recorder,
		events:       events,
		model:        model,
		logger:       logx.NewLogger("server"),
	}
}

// RegisterRoutes attaches all HTTP handlers to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  s.model,
	})
}

// handleRun validates the request, builds the input bundle, and streams
// the run's events as SSE. Invalid input is rejected with a structured
// error before any stage runs.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bundle, err := s.buildInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.New().String()

	// The request context is cancelled when the client disconnects, which
	// is how client-side aborts reach the orchestrator.
	events, err := s.orchestrator.Run(r.Context(), runID, bundle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("run %s: streaming started (model %s)", runID, s.model)
	s.recorder.RunStarted()
	s.streamRun(w, runID, events)
}

// streamRun encodes every event onto the response as it arrives, then the
// done marker. Metrics and the event log observe the stream as it passes
// through.
func (s *Server) streamRun(w http.ResponseWriter, runID string, events <-chan pipeline.Event) {
	enc := sse.NewEncoder(w)
	stageStart := make(map[string]time.Time)
	outcome := metrics.OutcomeCompleted

	for ev := range events {
		switch ev.Status {
		case pipeline.StatusStarted:
			stageStart[ev.Agent] = time.Now()
		case pipeline.StatusToken:
			s.recorder.TokenEmitted(ev.Agent)
		case pipeline.StatusCompleted, pipeline.StatusFailed:
			if start, ok := stageStart[ev.Agent]; ok {
				s.recorder.StageFinished(ev.Agent, string(ev.Status), time.Since(start))
			}
			if ev.Status == pipeline.StatusFailed {
				outcome = metrics.OutcomeFailed
			}
		}

		if s.events != nil {
			if err := s.events.WriteEvent(runID, ev); err != nil {
				s.logger.Warn("run %s: event log write failed: %v", runID, err)
			}
		}

		if err := enc.WriteEvent(ev); err != nil {
			// Client gone; the request context cancellation stops the
			// orchestrator.
			s.logger.Info("run %s: client disconnected: %v", runID, err)
			s.recorder.RunFinished(metrics.OutcomeCancelled)
			return
		}
	}

	if err := enc.WriteDone(); err != nil {
		s.logger.Info("run %s: client disconnected before done marker", runID)
		s.recorder.RunFinished(metrics.OutcomeCancelled)
		return
	}
	s.recorder.RunFinished(outcome)
	s.logger.Info("run %s: stream finished", runID)
}

// buildInput extracts the request's documents into the text input bundle.
func (s *Server) buildInput(req RunRequest) (pipeline.InputBundle, error) {
	if req.LinkedInPDF == "" {
		return pipeline.InputBundle{}, pipeline.ErrMissingProfile
	}

	profileData, err := extract.DecodeBase64(req.LinkedInPDF)
	if err != nil {
		return pipeline.InputBundle{}, logx.Wrap(err, "profile document")
	}
	profile, err := s.extractor.Extract(profileData)
	if err != nil {
		return pipeline.InputBundle{}, logx.Wrap(err, "profile document")
	}

	resume := req.Resume
	if req.ResumePDF != "" {
		resumeData, err := extract.DecodeBase64(req.ResumePDF)
		if err != nil {
			return pipeline.InputBundle{}, logx.Wrap(err, "resume document")
		}
		resume, err = s.extractor.Extract(resumeData)
		if err != nil {
			return pipeline.InputBundle{}, logx.Wrap(err, "resume document")
		}
	}

	return pipeline.InputBundle{Profile: profile, Resume: resume}, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
