package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoqa/internal/automation"
	"autoqa/internal/domain"
	"autoqa/internal/events"
)

// captureRecording creates the run's recording. With an automation
// collaborator configured the capture is delegated and the recording stays
// in progress; otherwise placeholder steps are written from the executed
// cases and the recording completes immediately.
func (e *Engine) captureRecording(ctx context.Context, run domain.TestRun, stored []domain.TestCase, totalTime int) error {
	rec := domain.TestRecording{
		ID:          uuid.NewString(),
		TestRunID:   run.ID,
		Name:        "Test Recording - " + run.URL,
		Description: fmt.Sprintf("Automated test recording for %s with %d test cases", run.URL, len(stored)),
		TotalSteps:  len(stored),
		Duration:    totalTime,
		Status:      domain.RecordingStatusRecording,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertRecording(ctx, rec); err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}

	if e.Automation != nil {
		err := e.Automation.Capture(ctx, automation.CaptureRequest{
			TestRunID:   run.ID,
			URL:         run.URL,
			RecordingID: rec.ID,
		})
		if err != nil {
			// A collaborator failure loses only the recording.
			completedAt := e.now().UTC().Format(time.RFC3339)
			if ferr := e.Repo.FinishRecording(ctx, rec.ID, domain.RecordingStatusFailed, completedAt, false); ferr != nil {
				return ferr
			}
			return e.Events.Append(ctx, "recording.failed", run.ID, "recording", rec.ID, events.EventPayload{"error": err.Error()})
		}
		return e.Events.Append(ctx, "recording.delegated", run.ID, "recording", rec.ID, nil)
	}

	for i, tc := range stored {
		step := buildStep(rec.ID, tc, i+1)
		if err := e.Repo.InsertRecordingStep(ctx, step); err != nil {
			return fmt.Errorf("insert recording step: %w", err)
		}
	}

	completedAt := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.FinishRecording(ctx, rec.ID, domain.RecordingStatusCompleted, completedAt, true); err != nil {
		return fmt.Errorf("complete recording: %w", err)
	}
	return e.Events.Append(ctx, "recording.completed", run.ID, "recording", rec.ID, events.EventPayload{"total_steps": len(stored)})
}

// buildStep projects an executed case onto its recording step. The
// screenshot is a generated placeholder colored by outcome.
func buildStep(recordingID string, tc domain.TestCase, stepNumber int) domain.TestRecordingStep {
	bgColor := "10b981"
	statusText := "Test+Passed"
	if tc.Status != "passed" {
		bgColor = "ef4444"
		statusText = "Test+Failed"
	}
	screenshotURL := fmt.Sprintf("https://placehold.co/1920x1080/%s/ffffff/png?text=Step+%d%%0A%s", bgColor, stepNumber, statusText)

	step := domain.TestRecordingStep{
		ID:                uuid.NewString(),
		RecordingID:       recordingID,
		TestCaseID:        tc.ID,
		StepNumber:        stepNumber,
		ActionType:        tc.TestType,
		ActionDescription: tc.Description,
		ScreenshotURL:     screenshotURL,
		InputData:         stepInputData(tc.TestData),
		ExpectedResult:    tc.ExpectedResult,
		Status:            tc.Status,
		ExecutionTime:     tc.ExecutionTime,
		CreatedAt:         tc.CreatedAt,
	}
	if step.ActionDescription == "" {
		step.ActionDescription = tc.TestName
	}
	if tc.TestData != "" {
		selector, _ := json.Marshal(tc.TestData)
		s := string(selector)
		step.ElementSelector = &s
	}
	var parsed struct {
		ActualResult *string `json:"actual_result"`
	}
	if err := json.Unmarshal([]byte(tc.TestData), &parsed); err == nil && parsed.ActualResult != nil {
		step.ActualResult = parsed.ActualResult
	} else if tc.Status == "passed" {
		step.ActualResult = tc.ExpectedResult
	} else {
		step.ActualResult = tc.ErrorMessage
	}
	return step
}

// stepInputData keeps test data as JSON: valid documents pass through,
// anything else is wrapped under a raw key.
func stepInputData(testData string) string {
	if testData == "" {
		return ""
	}
	if json.Valid([]byte(testData)) {
		return testData
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": testData})
	return string(wrapped)
}
