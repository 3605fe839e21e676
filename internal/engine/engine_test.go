package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"autoqa/internal/config"
	"autoqa/internal/db"
	"autoqa/internal/domain"
	"autoqa/internal/engine"
	"autoqa/internal/migrate"
	"autoqa/internal/repo"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.Default())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	eng.Seed = func() int64 { return 42 }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func startAndWait(t *testing.T, env testEnv, opts engine.StartRunOptions) domain.TestRun {
	t.Helper()
	run, err := env.Engine.StartRun(env.Ctx, opts)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if run.Status != domain.RunStatusRunning {
		t.Fatalf("intake status = %s, want running", run.Status)
	}
	env.Engine.Wait()
	got, err := env.Engine.Repo.GetTestRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	return got
}

func TestQuickRunCompletes(t *testing.T) {
	env := newTestEnv(t)
	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s (%v), want completed", run.Status, run.ErrorMessage)
	}
	if run.TotalTests != 60 {
		t.Fatalf("total_tests = %d, want 60", run.TotalTests)
	}
	if run.PassedTests+run.FailedTests != run.TotalTests {
		t.Fatalf("passed %d + failed %d != total %d", run.PassedTests, run.FailedTests, run.TotalTests)
	}
	if run.TotalPages != 1 {
		t.Fatalf("total_pages = %d, want 1", run.TotalPages)
	}
	if run.ExecutionTime < 60*500 || run.ExecutionTime >= 60*3500 {
		t.Fatalf("execution_time = %d outside simulated window", run.ExecutionTime)
	}
	if run.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	cases, err := env.Engine.Repo.ListTestCases(env.Ctx, repo.TestCaseFilters{TestRunID: run.ID})
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if len(cases) != 60 {
		t.Fatalf("stored cases = %d, want 60", len(cases))
	}
	for i, c := range cases {
		if c.ExecutionTime < 500 || c.ExecutionTime >= 3500 {
			t.Fatalf("case %d execution_time = %d outside window", i, c.ExecutionTime)
		}
		if !strings.Contains(c.TestData, `"execution_index"`) {
			t.Fatalf("case %d test_data missing execution_index: %s", i, c.TestData)
		}
		if c.Status == "failed" && c.ErrorMessage == nil {
			t.Fatalf("failed case %d has no error message", i)
		}
		if c.Status == "passed" && c.ErrorMessage != nil {
			t.Fatalf("passed case %d has error message %q", i, *c.ErrorMessage)
		}
	}

	insights, err := env.Engine.Repo.ListInsights(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list insights: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("insights = %d, want 2", len(insights))
	}
	if insights[0].InsightType != "recommendation" || insights[1].InsightType != "security" {
		t.Fatalf("insight types = %s,%s", insights[0].InsightType, insights[1].InsightType)
	}
	if len(insights[1].AffectedPages) != 1 || insights[1].AffectedPages[0] != "https://example.com" {
		t.Fatalf("security insight pages = %v", insights[1].AffectedPages)
	}
}

func TestDepthControlsTestCount(t *testing.T) {
	for depth, want := range map[string]int{"quick": 60, "standard": 120, "exhaustive": 200} {
		env := newTestEnv(t)
		run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: depth})
		if run.TotalTests != want {
			t.Fatalf("depth=%s total_tests = %d, want %d", depth, run.TotalTests, want)
		}
	}
}

func TestRunPhaseOrder(t *testing.T) {
	env := newTestEnv(t)
	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})

	evts, err := env.Engine.Repo.ListRunEvents(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var phases []string
	for _, e := range evts {
		if strings.HasPrefix(e.Type, "run.") {
			phases = append(phases, e.Type)
		}
	}
	want := []string{"run.started", "run.generating_tests", "run.executing_tests", "run.completed"}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d = %s, want %s", i, phases[i], want[i])
		}
	}
}

func TestStartRunRejectsInternalURL(t *testing.T) {
	env := newTestEnv(t)
	for _, raw := range []string{"http://localhost:3000", "http://192.168.0.10", "ftp://example.com", ""} {
		if _, err := env.Engine.StartRun(env.Ctx, engine.StartRunOptions{URL: raw}); err == nil {
			t.Fatalf("StartRun(%q) succeeded, want error", raw)
		}
	}
	runs, err := env.Engine.Repo.ListTestRuns(env.Ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("rejected intakes left %d runs", len(runs))
	}
}

func TestStartRunSanitizesInputs(t *testing.T) {
	env := newTestEnv(t)
	user := "qa-bot"
	run := startAndWait(t, env, engine.StartRunOptions{
		URL:       "https://example.com/app",
		Username:  user,
		Password:  "hunter2",
		Framework: "puppeteer",
		Browser:   "ie11",
		Depth:     "extreme",
		TestType:  "chaos",
		AIModel:   "gpt-unknown",
	})
	if run.Framework != "playwright" || run.Browser != "chromium" || run.Depth != "standard" || run.TestType != "functional" {
		t.Fatalf("defaults not applied: %s/%s/%s/%s", run.Framework, run.Browser, run.Depth, run.TestType)
	}
	if run.AIModel != "hackathon-gemini-2.5-flash" {
		t.Fatalf("ai_model = %s", run.AIModel)
	}
	if run.Username == nil || *run.Username != user {
		t.Fatalf("username = %v", run.Username)
	}
	if !run.Headless {
		t.Fatal("headless default not applied")
	}
}

func TestCredentialsUnlockAuthCases(t *testing.T) {
	env := newTestEnv(t)
	run := startAndWait(t, env, engine.StartRunOptions{
		URL:      "https://example.com",
		Username: "qa-bot",
		Password: "hunter2",
		OTP:      "123456",
		TestType: "security",
		Depth:    "quick",
	})
	cases, err := env.Engine.Repo.ListTestCases(env.Ctx, repo.TestCaseFilters{TestRunID: run.ID})
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if cases[0].TestName != "XSS - Search Input" {
		t.Fatalf("first case = %q, want security bank head", cases[0].TestName)
	}
	var sawLogin, sawOTP bool
	for _, c := range cases {
		if c.TestName == "Login - Valid Credentials" {
			sawLogin = true
		}
		if strings.HasPrefix(c.TestName, "OTP") {
			sawOTP = true
		}
	}
	if !sawLogin || !sawOTP {
		t.Fatalf("credential cases missing: login=%v otp=%v", sawLogin, sawOTP)
	}
}

func TestPipelineFaultFailsRun(t *testing.T) {
	env := newTestEnv(t)
	// Break the insight phase so the pipeline faults after the cases are in.
	if _, err := env.Engine.DB.Exec(`DROP TABLE test_insights`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	if run.CompletedAt == nil {
		t.Fatal("failed run has no completed_at")
	}
	if run.ErrorMessage == nil || *run.ErrorMessage == "" {
		t.Fatal("failed run has no error message")
	}

	cases, err := env.Engine.Repo.ListTestCases(env.Ctx, repo.TestCaseFilters{TestRunID: run.ID})
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if len(cases) != 60 {
		t.Fatalf("partial cases = %d, want 60 retained", len(cases))
	}
	pages, err := env.Engine.Repo.ListDiscoveredPages(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("partial pages = %d, want 1 retained", len(pages))
	}

	evts, err := env.Engine.Repo.ListRunEvents(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	last := evts[len(evts)-1]
	if last.Type != "run.failed" {
		t.Fatalf("last event = %s, want run.failed", last.Type)
	}
}

func TestFailWriteErrorLeavesTrace(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.DB.Exec(`DROP TABLE test_insights`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	// Block the terminal write so the failure path itself errors.
	if _, err := env.Engine.DB.Exec(`CREATE TRIGGER block_fail_write BEFORE UPDATE ON test_runs
		WHEN NEW.status = 'failed'
		BEGIN SELECT RAISE(ABORT, 'fail write blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})
	if run.Status != domain.RunStatusExecutingTests {
		t.Fatalf("status = %s, want executing_tests kept", run.Status)
	}

	evts, err := env.Engine.Repo.ListRunEvents(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var trace *domain.Event
	for i := range evts {
		if evts[i].Type == "run.fail_write_error" {
			trace = &evts[i]
		}
	}
	if trace == nil {
		t.Fatal("no run.fail_write_error event")
	}
	if !strings.Contains(trace.Payload, "fail write blocked") {
		t.Fatalf("trace payload %q missing write error", trace.Payload)
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.CredentialLength = 5
	env := newTestEnvWithConfig(t, cfg)

	run := startAndWait(t, env, engine.StartRunOptions{
		URL:      "https://example.com",
		Depth:    "quick",
		Username: "ééééé",
		Password: "x",
	})
	if run.Username == nil {
		t.Fatal("username not persisted")
	}
	if !utf8.ValidString(*run.Username) {
		t.Fatalf("username %q is not valid UTF-8", *run.Username)
	}
	if len(*run.Username) > 5 {
		t.Fatalf("username %q exceeds cap", *run.Username)
	}
	if *run.Username != "éé" {
		t.Fatalf("username = %q, want éé", *run.Username)
	}
}

func TestRecordingStepsMirrorCases(t *testing.T) {
	env := newTestEnv(t)
	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})

	recs, err := env.Engine.Repo.ListRecordings(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("list recordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("recordings = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Status != domain.RecordingStatusCompleted {
		t.Fatalf("recording status = %s, want completed", rec.Status)
	}
	if !rec.NarrationEnabled {
		t.Fatal("narration not enabled on completed recording")
	}
	if rec.TotalSteps != run.TotalTests {
		t.Fatalf("total_steps = %d, want %d", rec.TotalSteps, run.TotalTests)
	}
	if rec.Duration != run.ExecutionTime {
		t.Fatalf("duration = %d, want %d", rec.Duration, run.ExecutionTime)
	}

	steps, err := env.Engine.Repo.ListRecordingSteps(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != run.TotalTests {
		t.Fatalf("steps = %d, want %d", len(steps), run.TotalTests)
	}
	for i, s := range steps {
		if s.StepNumber != i+1 {
			t.Fatalf("step %d has step_number %d", i, s.StepNumber)
		}
		wantColor := "10b981"
		if s.Status == "failed" {
			wantColor = "ef4444"
		}
		if !strings.Contains(s.ScreenshotURL, wantColor) {
			t.Fatalf("step %d screenshot %q missing color %s", i, s.ScreenshotURL, wantColor)
		}
		if s.ActualResult == nil {
			t.Fatalf("step %d has no actual result", i)
		}
	}
}

func TestAutomationDelegationKeepsRecordingOpen(t *testing.T) {
	var captured int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Automation.Endpoint = srv.URL
	env := newTestEnvWithConfig(t, cfg)
	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
	if captured != 1 {
		t.Fatalf("collaborator called %d times, want 1", captured)
	}
	recs, err := env.Engine.Repo.ListRecordings(env.Ctx, run.ID)
	if err != nil || len(recs) != 1 {
		t.Fatalf("list recordings: %v (%d)", err, len(recs))
	}
	if recs[0].Status != domain.RecordingStatusRecording {
		t.Fatalf("delegated recording status = %s, want recording", recs[0].Status)
	}
	steps, err := env.Engine.Repo.ListRecordingSteps(env.Ctx, recs[0].ID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("delegated recording has %d local steps", len(steps))
	}
}

func TestAutomationFailureFailsOnlyRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Automation.Endpoint = srv.URL
	env := newTestEnvWithConfig(t, cfg)
	run := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
	recs, err := env.Engine.Repo.ListRecordings(env.Ctx, run.ID)
	if err != nil || len(recs) != 1 {
		t.Fatalf("list recordings: %v (%d)", err, len(recs))
	}
	if recs[0].Status != domain.RecordingStatusFailed {
		t.Fatalf("recording status = %s, want failed", recs[0].Status)
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	env := newTestEnv(t)
	first := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})
	second := startAndWait(t, env, engine.StartRunOptions{URL: "https://example.com", Depth: "quick"})
	if first.PassedTests != second.PassedTests || first.ExecutionTime != second.ExecutionTime {
		t.Fatalf("seeded runs diverged: %d/%d vs %d/%d",
			first.PassedTests, first.ExecutionTime, second.PassedTests, second.ExecutionTime)
	}
}
