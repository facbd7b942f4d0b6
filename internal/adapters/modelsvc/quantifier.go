package modelsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/quant"
)

// quantifyWire mirrors the quantifier's request schema.
type quantifyWire struct {
	SubmissionID string   `json:"submission_id"`
	Frames       [][]byte `json:"frames"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	FPS          int      `json:"fps"`
}

// quantifyResult mirrors the quantifier's response schema.
type quantifyResult struct {
	LVEF float64 `json:"lvef"`
}

// provisioningBody is the 503 payload a scaled-to-zero backend answers with
// while its container warms up.
type provisioningBody struct {
	State string `json:"state"`
}

// HTTPQuantifier calls a remote quantification capability.
type HTTPQuantifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPQuantifier creates a quantifier client for endpoint.
func NewHTTPQuantifier(endpoint string, opts ...ClientOption) *HTTPQuantifier {
	q := &HTTPQuantifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(q.client)
	}
	return q
}

// Quantify submits the normalized frame sequence. A 503 carrying
// {"state":"provisioning"} maps to quant.ErrProvisioning so the invoker
// waits out the cold start instead of burning its transient budget.
func (q *HTTPQuantifier) Quantify(ctx context.Context, req quant.QuantifyRequest) (quant.QuantifyResponse, error) {
	wire := quantifyWire{
		SubmissionID: req.SubmissionID,
		Frames:       framePayloads(req.Frames),
		Width:        req.Width,
		Height:       req.Height,
		FPS:          req.FPS,
	}

	var result quantifyResult
	err := postJSON(ctx, q.client, q.endpoint, wire, &result, func(body []byte) error {
		var p provisioningBody
		if json.Unmarshal(body, &p) == nil && p.State == "provisioning" {
			return fmt.Errorf("%w: backend warming up", quant.ErrProvisioning)
		}
		return fmt.Errorf("%w: capability returned %d", model.ErrTransientExternal, http.StatusServiceUnavailable)
	})
	if err != nil {
		return quant.QuantifyResponse{}, err
	}
	return quant.QuantifyResponse{LVEF: result.LVEF}, nil
}
