// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/repository"
	service "github.com/webbjeremy-ops/echonet-modal-deployment/internal/app"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSubmission(ctx context.Context, clipRef, declaredFormat string, blindEstimate *float64) (SubmissionView, error)
	RecordEstimate(ctx context.Context, id string, value float64) error
	GetSubmission(ctx context.Context, id string) (SubmissionView, error)
	CancelSubmission(ctx context.Context, id string) (bool, error)
}

// SubmissionView mirrors the read shape returned by submission queries.
type SubmissionView = types.SubmissionView

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submissionsHandler *SubmissionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		submissionsHandler: NewSubmissionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/submissions", MetricsMiddleware(s.submissionsHandler.HandleCreate, "submissions"))
	mux.HandleFunc("/submissions/", MetricsMiddleware(s.submissionsHandler.HandleSubmission, "submission"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps service and domain errors to HTTP statuses so every
// handler translates them the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, model.ErrEstimateOutOfRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrQueueSaturated):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, model.ErrEstimateAlreadySet),
		errors.Is(err, model.ErrEstimateTooLate),
		errors.Is(err, repository.ErrTerminal):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
