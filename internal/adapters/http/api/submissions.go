package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SubmissionsHandler handles the submission lifecycle endpoints.
type SubmissionsHandler struct {
	deps Dependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// createRequest mirrors the schema for POST /submissions.
type createRequest struct {
	ClipRef       string   `json:"clip_ref"`
	Format        string   `json:"format,omitempty"`
	BlindEstimate *float64 `json:"blind_estimate,omitempty"`
}

// estimateRequest mirrors the schema for PUT /submissions/{id}/estimate.
type estimateRequest struct {
	LVEF float64 `json:"lvef"`
}

// cancelResponse reports how a cancel request was applied.
type cancelResponse struct {
	Status    string `json:"status"`
	Immediate bool   `json:"immediate"`
}

// HandleCreate handles POST /submissions requests.
func (h *SubmissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if strings.TrimSpace(req.ClipRef) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	view, err := h.deps.CreateSubmission(r.Context(), req.ClipRef, req.Format, req.BlindEstimate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// HandleSubmission routes /submissions/{id} and its sub-resources.
func (h *SubmissionsHandler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/submissions/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case action == "estimate" && r.Method == http.MethodPut:
		h.handleEstimate(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		h.handleCancel(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *SubmissionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.deps.GetSubmission(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SubmissionsHandler) handleEstimate(w http.ResponseWriter, r *http.Request, id string) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if err := h.deps.RecordEstimate(r.Context(), id, req.LVEF); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "recorded"})
}

func (h *SubmissionsHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	immediate, err := h.deps.CancelSubmission(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := "cancel_requested"
	if immediate {
		status = "canceled"
	}
	writeJSON(w, http.StatusOK, cancelResponse{Status: status, Immediate: immediate})
}
