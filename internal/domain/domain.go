package domain

// Run lifecycle statuses, in pipeline order.
const (
	RunStatusRunning         = "running"
	RunStatusGeneratingTests = "generating_tests"
	RunStatusExecutingTests  = "executing_tests"
	RunStatusCompleted       = "completed"
	RunStatusFailed          = "failed"
)

// Recording statuses.
const (
	RecordingStatusRecording = "recording"
	RecordingStatusCompleted = "completed"
	RecordingStatusFailed    = "failed"
)

type TestRun struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Username      *string `json:"username,omitempty"`
	Framework     string  `json:"framework" enum:"playwright,selenium,cypress"`
	Browser       string  `json:"browser" enum:"chromium,firefox,webkit"`
	Depth         string  `json:"depth" enum:"quick,standard,exhaustive"`
	TestType      string  `json:"test_type"`
	Headless      bool    `json:"headless"`
	AIModel       string  `json:"ai_model,omitempty"`
	Status        string  `json:"status" enum:"running,generating_tests,executing_tests,completed,failed"`
	TotalTests    int     `json:"total_tests"`
	PassedTests   int     `json:"passed_tests"`
	FailedTests   int     `json:"failed_tests"`
	TotalPages    int     `json:"total_pages"`
	ExecutionTime int     `json:"execution_time"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
}

type DiscoveredPage struct {
	ID         string `json:"id"`
	TestRunID  string `json:"test_run_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	PageType   string `json:"page_type"`
	FormsCount int    `json:"forms_count"`
	LinksCount int    `json:"links_count"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type TestCase struct {
	ID             string  `json:"id"`
	TestRunID      string  `json:"test_run_id"`
	TestType       string  `json:"test_type"`
	TestName       string  `json:"test_name"`
	Description    string  `json:"description,omitempty"`
	Severity       string  `json:"severity" enum:"critical,high,medium,low"`
	TestData       string  `json:"test_data"`
	ExpectedResult *string `json:"expected_result,omitempty"`
	Status         string  `json:"status" enum:"passed,failed"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	ExecutionTime  int     `json:"execution_time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type TestRecording struct {
	ID               string  `json:"id"`
	TestRunID        string  `json:"test_run_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	TotalSteps       int     `json:"total_steps"`
	Duration         int     `json:"duration"`
	Status           string  `json:"status" enum:"recording,completed,failed"`
	NarrationEnabled bool    `json:"narration_enabled"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	CompletedAt      *string `json:"completed_at,omitempty" format:"date-time"`
}

type TestRecordingStep struct {
	ID                string  `json:"id"`
	RecordingID       string  `json:"recording_id"`
	TestCaseID        string  `json:"test_case_id"`
	StepNumber        int     `json:"step_number"`
	ActionType        string  `json:"action_type"`
	ActionDescription string  `json:"action_description"`
	ScreenshotURL     string  `json:"screenshot_url"`
	ElementSelector   *string `json:"element_selector,omitempty"`
	InputData         string  `json:"input_data,omitempty"`
	ExpectedResult    *string `json:"expected_result,omitempty"`
	ActualResult      *string `json:"actual_result,omitempty"`
	Status            string  `json:"status" enum:"passed,failed"`
	ExecutionTime     int     `json:"execution_time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

type Insight struct {
	ID            string   `json:"id"`
	TestRunID     string   `json:"test_run_id"`
	InsightType   string   `json:"insight_type"`
	Severity      string   `json:"severity" enum:"critical,high,medium,low"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AffectedPages []string `json:"affected_pages"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
