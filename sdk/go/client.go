package autoqasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal AutoQA HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// PollInterval controls WaitForRun's polling cadence.
	PollInterval time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		PollInterval: 2 * time.Second,
	}
}

// StartRunRequest carries the run parameters.
type StartRunRequest struct {
	URL                 string `json:"url"`
	Username            string `json:"username,omitempty"`
	Password            string `json:"password,omitempty"`
	OTP                 string `json:"otp,omitempty"`
	Framework           string `json:"framework,omitempty"`
	Browser             string `json:"browser,omitempty"`
	Depth               string `json:"depth,omitempty"`
	TestType            string `json:"test_type,omitempty"`
	Headless            *bool  `json:"headless,omitempty"`
	AIModel             string `json:"ai_model,omitempty"`
	DataValidationRules string `json:"data_validation_rules,omitempty"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	TestRunID string `json:"test_run_id"`
	Status    string `json:"status"`
}

// TestRun represents the API run model.
type TestRun struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Framework     string  `json:"framework"`
	Browser       string  `json:"browser"`
	Depth         string  `json:"depth"`
	TestType      string  `json:"test_type"`
	Status        string  `json:"status"`
	TotalTests    int     `json:"total_tests"`
	PassedTests   int     `json:"passed_tests"`
	FailedTests   int     `json:"failed_tests"`
	TotalPages    int     `json:"total_pages"`
	ExecutionTime int     `json:"execution_time"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// RunProgress is the lightweight polling payload.
type RunProgress struct {
	Total   int    `json:"total"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
	Pending int    `json:"pending"`
	Status  string `json:"status"`
}

// TestCase represents one executed case.
type TestCase struct {
	ID             string          `json:"id"`
	TestRunID      string          `json:"test_run_id"`
	TestType       string          `json:"test_type"`
	TestName       string          `json:"test_name"`
	Description    string          `json:"description,omitempty"`
	Severity       string          `json:"severity"`
	TestData       json.RawMessage `json:"test_data"`
	ExpectedResult *string         `json:"expected_result,omitempty"`
	Status         string          `json:"status"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	ExecutionTime  int             `json:"execution_time"`
	CreatedAt      string          `json:"created_at"`
}

// Insight is an analysis finding for a run.
type Insight struct {
	ID            string   `json:"id"`
	TestRunID     string   `json:"test_run_id"`
	InsightType   string   `json:"insight_type"`
	Severity      string   `json:"severity"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AffectedPages []string `json:"affected_pages"`
	CreatedAt     string   `json:"created_at"`
}

// Recording is a run's captured session.
type Recording struct {
	ID               string  `json:"id"`
	TestRunID        string  `json:"test_run_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	TotalSteps       int     `json:"total_steps"`
	Duration         int     `json:"duration"`
	Status           string  `json:"status"`
	NarrationEnabled bool    `json:"narration_enabled"`
	CreatedAt        string  `json:"created_at"`
	CompletedAt      *string `json:"completed_at,omitempty"`
}

// RecordingStep is one captured step.
type RecordingStep struct {
	ID                string  `json:"id"`
	RecordingID       string  `json:"recording_id"`
	TestCaseID        string  `json:"test_case_id"`
	StepNumber        int     `json:"step_number"`
	ActionType        string  `json:"action_type"`
	ActionDescription string  `json:"action_description"`
	ScreenshotURL     string  `json:"screenshot_url"`
	ExpectedResult    *string `json:"expected_result,omitempty"`
	ActualResult      *string `json:"actual_result,omitempty"`
	Status            string  `json:"status"`
	ExecutionTime     int     `json:"execution_time"`
	CreatedAt         string  `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartRun submits a new run.
func (c *Client) StartRun(ctx context.Context, req StartRunRequest) (StartRunResponse, error) {
	var resp StartRunResponse
	err := c.do(ctx, http.MethodPost, "v0/runs", req, &resp)
	return resp, err
}

// Run fetches a run by id.
func (c *Client) Run(ctx context.Context, id string) (TestRun, error) {
	var resp TestRun
	err := c.do(ctx, http.MethodGet, "v0/runs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Runs lists runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]TestRun, error) {
	endpoint := "v0/runs"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []TestRun
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Progress fetches the polling payload for a run.
func (c *Client) Progress(ctx context.Context, id string) (RunProgress, error) {
	var resp RunProgress
	err := c.do(ctx, http.MethodGet, "v0/runs/"+url.PathEscape(id)+"/progress", nil, &resp)
	return resp, err
}

// Cases lists a run's executed cases. Status filters by passed or failed
// when non-empty.
func (c *Client) Cases(ctx context.Context, runID, status string) ([]TestCase, error) {
	endpoint := "v0/runs/" + url.PathEscape(runID) + "/cases"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []TestCase
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Insights lists a run's insights.
func (c *Client) Insights(ctx context.Context, runID string) ([]Insight, error) {
	var resp []Insight
	err := c.do(ctx, http.MethodGet, "v0/runs/"+url.PathEscape(runID)+"/insights", nil, &resp)
	return resp, err
}

// Recordings lists a run's recordings.
func (c *Client) Recordings(ctx context.Context, runID string) ([]Recording, error) {
	var resp []Recording
	err := c.do(ctx, http.MethodGet, "v0/runs/"+url.PathEscape(runID)+"/recordings", nil, &resp)
	return resp, err
}

// Steps lists a recording's steps in order.
func (c *Client) Steps(ctx context.Context, recordingID string) ([]RecordingStep, error) {
	var resp []RecordingStep
	err := c.do(ctx, http.MethodGet, "v0/recordings/"+url.PathEscape(recordingID)+"/steps", nil, &resp)
	return resp, err
}

// WaitForRun polls until the run reaches a terminal status or ctx ends.
func (c *Client) WaitForRun(ctx context.Context, id string) (TestRun, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	for {
		run, err := c.Run(ctx, id)
		if err != nil {
			return TestRun{}, err
		}
		if run.Status == "completed" || run.Status == "failed" {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
