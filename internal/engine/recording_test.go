package engine

import (
	"encoding/json"
	"testing"

	"autoqa/internal/domain"
)

func TestStepInputDataKeepsJSON(t *testing.T) {
	if got := stepInputData(`{"original":null,"actual_result":"ok","execution_index":1}`); got != `{"original":null,"actual_result":"ok","execution_index":1}` {
		t.Fatalf("valid document rewritten: %q", got)
	}
	if got := stepInputData(""); got != "" {
		t.Fatalf("empty input became %q", got)
	}
}

func TestStepInputDataWrapsNonJSON(t *testing.T) {
	got := stepInputData("Valid credentials")
	var wrapped map[string]string
	if err := json.Unmarshal([]byte(got), &wrapped); err != nil {
		t.Fatalf("wrapped value %q is not JSON: %v", got, err)
	}
	if wrapped["raw"] != "Valid credentials" {
		t.Fatalf("raw = %q", wrapped["raw"])
	}
}

func TestBuildStepNonJSONTestData(t *testing.T) {
	msg := "Test failed: Login - Valid Credentials - Error message shown"
	tc := domain.TestCase{
		ID:            "case-1",
		TestType:      "functional",
		TestName:      "Login - Valid Credentials",
		TestData:      "Valid credentials",
		Status:        "failed",
		ErrorMessage:  &msg,
		ExecutionTime: 1200,
		CreatedAt:     "2025-06-01T12:00:00Z",
	}
	step := buildStep("rec-1", tc, 3)
	if step.InputData == tc.TestData {
		t.Fatalf("input_data %q not wrapped", step.InputData)
	}
	if !json.Valid([]byte(step.InputData)) {
		t.Fatalf("input_data %q is not JSON", step.InputData)
	}
	if step.ActualResult == nil || *step.ActualResult != msg {
		t.Fatalf("actual result = %v, want error message fallback", step.ActualResult)
	}
	if step.ActionDescription != tc.TestName {
		t.Fatalf("action description = %q, want test name fallback", step.ActionDescription)
	}
}
