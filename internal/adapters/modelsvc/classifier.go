// Package modelsvc implements clients for the external model capabilities:
// the view classifier and the LVEF quantifier. Both are opaque scoring
// services reached over HTTP; simulated in-process variants back tests and
// demo deployments.
package modelsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/triage"
)

// defaultCallTimeout bounds one capability call when no client is supplied.
const defaultCallTimeout = 10 * time.Second

// classifyWire mirrors the classifier's request schema. Frame payloads are
// base64-encoded by encoding/json.
type classifyWire struct {
	SubmissionID string   `json:"submission_id"`
	Frames       [][]byte `json:"frames"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Instructions string   `json:"instructions"`
}

// classifyResult mirrors the classifier's response schema.
type classifyResult struct {
	Verdict    bool    `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// HTTPClassifier calls a remote view-classification capability.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier client for endpoint.
func NewHTTPClassifier(endpoint string, opts ...ClientOption) *HTTPClassifier {
	c := &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(c.client)
	}
	return c
}

// Classify submits sampled frames and interprets the wire response.
// Timeouts, rate limits and 5xx answers are wrapped as transient so the gate
// retries them.
func (c *HTTPClassifier) Classify(ctx context.Context, req triage.ClassifyRequest) (triage.ClassifyResponse, error) {
	wire := classifyWire{
		SubmissionID: req.SubmissionID,
		Frames:       framePayloads(req.Frames),
		Width:        req.Width,
		Height:       req.Height,
		Instructions: req.Instructions,
	}

	var result classifyResult
	if err := postJSON(ctx, c.client, c.endpoint, wire, &result, nil); err != nil {
		return triage.ClassifyResponse{}, err
	}
	return triage.ClassifyResponse{
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		Reason:     result.Reason,
	}, nil
}

// ClientOption tunes the underlying HTTP client.
type ClientOption func(*http.Client)

// WithCallTimeout bounds a single capability call.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *http.Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func framePayloads(frames []ingest.Frame) [][]byte {
	out := make([][]byte, len(frames))
	for i, f := range frames {
		out[i] = f.Pix
	}
	return out
}

// postJSON performs one JSON round trip. A non-nil on503 hook gets the raw
// 503 body before the transient classification applies.
func postJSON(ctx context.Context, client *http.Client, endpoint string, in, out any, on503 func(body []byte) error) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransientExternal, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable && on503 != nil:
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		return on503(body.Bytes())
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: capability returned %d", model.ErrTransientExternal, resp.StatusCode)
	default:
		return fmt.Errorf("capability returned %d", resp.StatusCode)
	}
}
