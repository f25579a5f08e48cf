// Package server exposes the analysis agent over HTTP: JSON endpoints
// for analysis runs, stress tests, and projections, plus a WebSocket
// stream of progress events at /ws.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shirly8/Sift/agent"
	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/logger"
	"github.com/Shirly8/Sift/progress"
	"github.com/Shirly8/Sift/simulator"
)

// defaultMaxUploadBytes caps transaction uploads at 8 MiB; a year of
// daily transactions is well under 1 MiB.
const defaultMaxUploadBytes = 8 << 20

// Config configures the server.
type Config struct {
	// Agent runs the analysis pipeline. Required.
	Agent *agent.Agent

	// Hub streams progress events to WebSocket clients at /ws.
	// Optional; wire the same hub into the agent's sink so clients
	// see the steps of their own run.
	Hub *progress.Hub

	// AuthFunc validates requests. Nil accepts every request.
	AuthFunc func(r *http.Request) error

	// MaxUploadBytes caps request body size. Zero means 8 MiB.
	MaxUploadBytes int64

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Server is the HTTP front end over the analysis agent.
type Server struct {
	agent     *agent.Agent
	auth      func(r *http.Request) error
	maxUpload int64
	log       zerolog.Logger
	mux       *http.ServeMux
}

// New creates a server with the given configuration.
func New(cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	s := &Server{
		agent:     cfg.Agent,
		auth:      cfg.AuthFunc,
		maxUpload: maxUpload,
		log:       cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
	mux.HandleFunc("POST /api/stress", s.handleStress)
	mux.HandleFunc("POST /api/projection", s.handleProjection)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Hub != nil {
		mux.Handle("GET /ws", cfg.Hub.Handler())
	}
	s.mux = mux
	return s
}

// Handler returns the HTTP handler. Every route gets authentication
// and a request-scoped logger carrying the method, path, and a request
// id.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth != nil {
			if err := s.auth(r); err != nil {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		reqLog := s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", uuid.NewString()).
			Logger()
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))
		s.mux.ServeHTTP(w, r)
	})
}

// Run starts the server on the given address and blocks.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("analysis server listening")
	return srv.ListenAndServe()
}

// ============================================================================
// HANDLERS
// ============================================================================

type analyzeResponse struct {
	SessionID string        `json:"session_id"`
	Report    *agent.Report `json:"report"`
}

// handleAnalyze runs the full pipeline over an uploaded table. Accepts
// a CSV upload (multipart field "file" or a text/csv body) or a JSON
// body with a "transactions" array. An optional "session_id" keys the
// stored report; a second run for a session still in flight is
// rejected.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	txns, body, err := s.readTransactions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(txns) == 0 {
		s.writeError(w, http.StatusBadRequest, "no transactions in request")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" && body != nil {
		sessionID = body.SessionID
	}
	if sessionID == "" {
		sessionID = s.agent.Sessions().NewID()
	}

	report, err := s.agent.RunSession(r.Context(), sessionID, txns)
	if err != nil {
		if errors.Is(err, agent.ErrAnalysisInFlight) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("session", sessionID).Msg("analysis failed")
		s.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{SessionID: sessionID, Report: report})
}

// handleSession returns the stored report for a finished run.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	report, err := s.agent.Sessions().Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type stressRequest struct {
	Scenario     string             `json:"scenario"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	var req stressRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.agent.StressTest(req.Transactions, simulator.ScenarioType(req.Scenario))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type projectionRequest struct {
	Months       int                 `json:"months"`
	Scenario     *simulator.Scenario `json:"scenario,omitempty"`
	Transactions []core.Transaction  `json:"transactions"`
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proj, err := s.agent.Projection(req.Transactions, req.Months, req.Scenario)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, proj)
}

// ============================================================================
// REQUEST/RESPONSE PLUMBING
// ============================================================================

type analyzeBody struct {
	SessionID    string             `json:"session_id,omitempty"`
	Transactions []core.Transaction `json:"transactions"`
}

// readTransactions extracts the transaction table from a request in any
// of the supported shapes. The returned body is non-nil only for JSON
// requests.
func (s *Server) readTransactions(r *http.Request) ([]core.Transaction, *analyzeBody, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUpload)
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case contentType == "multipart/form-data":
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, nil, fmt.Errorf("parse upload: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, fmt.Errorf("missing upload field %q", "file")
		}
		defer file.Close()
		txns, err := core.ReadCSV(file)
		return txns, nil, err

	case contentType == "text/csv":
		txns, err := core.ReadCSV(r.Body)
		return txns, nil, err

	case strings.Contains(contentType, "json"), contentType == "":
		var body analyzeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, nil, fmt.Errorf("decode body: %w", err)
		}
		return body.Transactions, &body, nil
	}
	return nil, nil, fmt.Errorf("unsupported content type %q", contentType)
}

func (s *Server) decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUpload)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
