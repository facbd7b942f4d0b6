package testsubmissions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// submissionView mirrors the service's read shape for one submission.
type submissionView struct {
	SubmissionID    string   `json:"submission_id"`
	ClipRef         string   `json:"clip_ref"`
	Status          string   `json:"status"`
	Verdict         string   `json:"verdict"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	BlindEstimate   *float64 `json:"blind_estimate,omitempty"`
	Result          *float64 `json:"result,omitempty"`
	Delta           *float64 `json:"delta,omitempty"`
	ErrorKind       string   `json:"error_kind,omitempty"`
}

// apiClient is a minimal JSON client for the submission endpoints.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// health probes /healthz.
func (c *apiClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// createSubmission posts a clip reference and returns the created view.
func (c *apiClient) createSubmission(ctx context.Context, clipRef string) (submissionView, error) {
	body := map[string]string{"clip_ref": clipRef, "format": "gif"}
	var view submissionView
	if err := c.doJSON(ctx, http.MethodPost, "/submissions", body, StatusAccepted, &view); err != nil {
		return submissionView{}, err
	}
	return view, nil
}

// recordEstimate puts a blind LVEF guess for the submission.
func (c *apiClient) recordEstimate(ctx context.Context, id string, lvef float64) error {
	body := map[string]float64{"lvef": lvef}
	return c.doJSON(ctx, http.MethodPut, "/submissions/"+id+"/estimate", body, StatusOK, nil)
}

// getSubmission fetches the current view.
func (c *apiClient) getSubmission(ctx context.Context, id string) (submissionView, error) {
	var view submissionView
	if err := c.doJSON(ctx, http.MethodGet, "/submissions/"+id, nil, StatusOK, &view); err != nil {
		return submissionView{}, err
	}
	return view, nil
}

// doJSON performs one JSON round trip and enforces the expected status.
func (c *apiClient) doJSON(ctx context.Context, method, path string, in any, wantStatus int, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
