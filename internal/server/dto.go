package server

import (
	"encoding/json"

	"autoqa/internal/domain"
)

// Request payloads

type StartRunRequest struct {
	URL                 string  `json:"url"`
	Username            *string `json:"username,omitempty"`
	Password            *string `json:"password,omitempty"`
	OTP                 *string `json:"otp,omitempty"`
	Framework           string  `json:"framework,omitempty"`
	Browser             string  `json:"browser,omitempty"`
	Depth               string  `json:"depth,omitempty"`
	TestType            string  `json:"test_type,omitempty"`
	Headless            *bool   `json:"headless,omitempty"`
	AIModel             string  `json:"ai_model,omitempty"`
	ExpectedRecordCount *int    `json:"expected_record_count,omitempty"`
	DataValidationRules string  `json:"data_validation_rules,omitempty"`
}

// Response payloads

type StartRunResponse struct {
	TestRunID string `json:"test_run_id"`
	Status    string `json:"status" example:"started"`
}

type RunProgressResponse struct {
	Total       int    `json:"total"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Pending     int    `json:"pending"`
	Status      string `json:"status"`
	CurrentTest string `json:"current_test"`
}

type TestCaseResponse struct {
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

func testCaseResponse(c domain.TestCase) TestCaseResponse {
	return TestCaseResponse{
		ID:             c.ID,
		TestRunID:      c.TestRunID,
		TestType:       c.TestType,
		TestName:       c.TestName,
		Description:    c.Description,
		Severity:       c.Severity,
		TestData:       json.RawMessage(c.TestData),
		ExpectedResult: c.ExpectedResult,
		Status:         c.Status,
		ErrorMessage:   c.ErrorMessage,
		ExecutionTime:  c.ExecutionTime,
		CreatedAt:      c.CreatedAt,
	}
}

func mapTestCases(items []domain.TestCase) []TestCaseResponse {
	res := make([]TestCaseResponse, 0, len(items))
	for _, c := range items {
		res = append(res, testCaseResponse(c))
	}
	return res
}
