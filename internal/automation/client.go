// Package automation calls an external browser automation service that
// captures real recordings for a run.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client
}

type CaptureRequest struct {
	TestRunID   string `json:"test_run_id"`
	URL         string `json:"url"`
	RecordingID string `json:"recording_id"`
}

// Capture asks the collaborator to record the target. The collaborator
// writes steps back on its own; a non-2xx response is an error.
func (c *Client) Capture(ctx context.Context, req CaptureRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal capture request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build capture request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("capture request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("capture request: status %d", resp.StatusCode)
	}
	return nil
}
