package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"autoqa/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const runColumns = `id,url,username,framework,browser,depth,test_type,headless,ai_model,status,total_tests,passed_tests,failed_tests,total_pages,execution_time,error_message,created_at,completed_at`

func (r Repo) InsertTestRun(ctx context.Context, run domain.TestRun) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO test_runs(`+runColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.URL, nullableStringPtr(run.Username), run.Framework, run.Browser, run.Depth, run.TestType,
		boolToInt(run.Headless), nullable(run.AIModel), run.Status, run.TotalTests, run.PassedTests, run.FailedTests,
		run.TotalPages, run.ExecutionTime, nullableStringPtr(run.ErrorMessage), run.CreatedAt, nullableStringPtr(run.CompletedAt))
	return err
}

func scanRun(scan func(dest ...any) error) (domain.TestRun, error) {
	var run domain.TestRun
	var username, aiModel, errMsg, completedAt sql.NullString
	var headless int
	err := scan(&run.ID, &run.URL, &username, &run.Framework, &run.Browser, &run.Depth, &run.TestType,
		&headless, &aiModel, &run.Status, &run.TotalTests, &run.PassedTests, &run.FailedTests,
		&run.TotalPages, &run.ExecutionTime, &errMsg, &run.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	run.Headless = headless != 0
	if username.Valid {
		run.Username = &username.String
	}
	if aiModel.Valid {
		run.AIModel = aiModel.String
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.String
	}
	return run, nil
}

func (r Repo) GetTestRun(ctx context.Context, id string) (domain.TestRun, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM test_runs WHERE id=?`, id)
	return scanRun(row.Scan)
}

func (r Repo) ListTestRuns(ctx context.Context, limit int) ([]domain.TestRun, error) {
	query := `SELECT ` + runColumns + ` FROM test_runs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TestRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// UpdateTestRunStatus moves a run to the next phase without touching counters.
func (r Repo) UpdateTestRunStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE test_runs SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTestRunExecuting persists the synthesized total and enters the execution phase.
func (r Repo) MarkTestRunExecuting(ctx context.Context, id string, totalTests int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE test_runs SET status=?, total_tests=? WHERE id=?`,
		domain.RunStatusExecutingTests, totalTests, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteTestRun is the single terminal success write.
func (r Repo) CompleteTestRun(ctx context.Context, run domain.TestRun) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE test_runs SET status=?, completed_at=?, total_pages=?, total_tests=?, passed_tests=?, failed_tests=?, execution_time=? WHERE id=?`,
		domain.RunStatusCompleted, nullableStringPtr(run.CompletedAt), run.TotalPages, run.TotalTests,
		run.PassedTests, run.FailedTests, run.ExecutionTime, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailTestRun is the terminal failure write; earlier artifacts are left in place.
func (r Repo) FailTestRun(ctx context.Context, id, completedAt, errorMessage string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE test_runs SET status=?, completed_at=?, error_message=? WHERE id=?`,
		domain.RunStatusFailed, completedAt, nullable(errorMessage), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertDiscoveredPage(ctx context.Context, p domain.DiscoveredPage) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO discovered_pages(id,test_run_id,url,title,page_type,forms_count,links_count,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.TestRunID, p.URL, p.Title, p.PageType, p.FormsCount, p.LinksCount, p.CreatedAt)
	return err
}

func (r Repo) ListDiscoveredPages(ctx context.Context, runID string) ([]domain.DiscoveredPage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,test_run_id,url,title,page_type,forms_count,links_count,created_at FROM discovered_pages WHERE test_run_id=? ORDER BY created_at ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DiscoveredPage
	for rows.Next() {
		var p domain.DiscoveredPage
		if err := rows.Scan(&p.ID, &p.TestRunID, &p.URL, &p.Title, &p.PageType, &p.FormsCount, &p.LinksCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertTestCase(ctx context.Context, c domain.TestCase) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO test_cases(id,test_run_id,test_type,test_name,description,severity,test_data,expected_result,status,error_message,execution_time,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.TestRunID, c.TestType, c.TestName, nullable(c.Description), c.Severity, c.TestData,
		nullableStringPtr(c.ExpectedResult), c.Status, nullableStringPtr(c.ErrorMessage), c.ExecutionTime, c.CreatedAt)
	return err
}

type TestCaseFilters struct {
	TestRunID string
	Status    string
	Limit     int
}

func (r Repo) ListTestCases(ctx context.Context, f TestCaseFilters) ([]domain.TestCase, error) {
	var clauses []string
	var args []any
	if f.TestRunID != "" {
		clauses = append(clauses, "test_run_id=?")
		args = append(args, f.TestRunID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	// rowid preserves insertion order, which is execution order.
	query := `SELECT id,test_run_id,test_type,test_name,description,severity,test_data,expected_result,status,error_message,execution_time,created_at FROM test_cases ` + where + ` ORDER BY rowid ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TestCase
	for rows.Next() {
		var c domain.TestCase
		var desc, expected, errMsg sql.NullString
		if err := rows.Scan(&c.ID, &c.TestRunID, &c.TestType, &c.TestName, &desc, &c.Severity, &c.TestData, &expected, &c.Status, &errMsg, &c.ExecutionTime, &c.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			c.Description = desc.String
		}
		if expected.Valid {
			c.ExpectedResult = &expected.String
		}
		if errMsg.Valid {
			c.ErrorMessage = &errMsg.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// LatestTestCaseName returns the name of the most recently executed case
// for a run, or "" when none exist yet.
func (r Repo) LatestTestCaseName(ctx context.Context, runID string) (string, error) {
	var name string
	err := r.DB.QueryRowContext(ctx, `SELECT test_name FROM test_cases WHERE test_run_id=? ORDER BY rowid DESC LIMIT 1`, runID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (r Repo) CountTestCasesByStatus(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM test_cases WHERE test_run_id=? GROUP BY status`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

func (r Repo) InsertInsight(ctx context.Context, in domain.Insight) error {
	pages, err := json.Marshal(in.AffectedPages)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO test_insights(id,test_run_id,insight_type,severity,title,description,affected_pages,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		in.ID, in.TestRunID, in.InsightType, in.Severity, in.Title, in.Description, string(pages), in.CreatedAt)
	return err
}

func (r Repo) ListInsights(ctx context.Context, runID string) ([]domain.Insight, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,test_run_id,insight_type,severity,title,description,affected_pages,created_at FROM test_insights WHERE test_run_id=? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Insight
	for rows.Next() {
		var in domain.Insight
		var pages sql.NullString
		if err := rows.Scan(&in.ID, &in.TestRunID, &in.InsightType, &in.Severity, &in.Title, &in.Description, &pages, &in.CreatedAt); err != nil {
			return nil, err
		}
		if pages.Valid {
			_ = json.Unmarshal([]byte(pages.String), &in.AffectedPages)
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

func (r Repo) InsertRecording(ctx context.Context, rec domain.TestRecording) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO test_recordings(id,test_run_id,name,description,total_steps,duration,status,narration_enabled,created_at,completed_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.TestRunID, rec.Name, nullable(rec.Description), rec.TotalSteps, rec.Duration, rec.Status,
		boolToInt(rec.NarrationEnabled), rec.CreatedAt, nullableStringPtr(rec.CompletedAt))
	return err
}

// FinishRecording flips a recording to its terminal status.
func (r Repo) FinishRecording(ctx context.Context, id, status, completedAt string, narration bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE test_recordings SET status=?, completed_at=?, narration_enabled=? WHERE id=?`,
		status, completedAt, boolToInt(narration), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecording(scan func(dest ...any) error) (domain.TestRecording, error) {
	var rec domain.TestRecording
	var desc, completedAt sql.NullString
	var narration int
	err := scan(&rec.ID, &rec.TestRunID, &rec.Name, &desc, &rec.TotalSteps, &rec.Duration, &rec.Status, &narration, &rec.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	rec.NarrationEnabled = narration != 0
	if desc.Valid {
		rec.Description = desc.String
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.String
	}
	return rec, nil
}

func (r Repo) GetRecording(ctx context.Context, id string) (domain.TestRecording, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,test_run_id,name,description,total_steps,duration,status,narration_enabled,created_at,completed_at FROM test_recordings WHERE id=?`, id)
	return scanRecording(row.Scan)
}

func (r Repo) ListRecordings(ctx context.Context, runID string) ([]domain.TestRecording, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,test_run_id,name,description,total_steps,duration,status,narration_enabled,created_at,completed_at FROM test_recordings WHERE test_run_id=? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TestRecording
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r Repo) InsertRecordingStep(ctx context.Context, s domain.TestRecordingStep) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO test_recording_steps(id,recording_id,test_case_id,step_number,action_type,action_description,screenshot_url,element_selector,input_data,expected_result,actual_result,status,execution_time,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.RecordingID, s.TestCaseID, s.StepNumber, s.ActionType, nullable(s.ActionDescription), nullable(s.ScreenshotURL),
		nullableStringPtr(s.ElementSelector), nullable(s.InputData), nullableStringPtr(s.ExpectedResult),
		nullableStringPtr(s.ActualResult), s.Status, s.ExecutionTime, s.CreatedAt)
	return err
}

func (r Repo) ListRecordingSteps(ctx context.Context, recordingID string) ([]domain.TestRecordingStep, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,recording_id,test_case_id,step_number,action_type,action_description,screenshot_url,element_selector,input_data,expected_result,actual_result,status,execution_time,created_at FROM test_recording_steps WHERE recording_id=? ORDER BY step_number ASC`, recordingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TestRecordingStep
	for rows.Next() {
		var s domain.TestRecordingStep
		var actionDesc, screenshot, selector, input, expected, actual sql.NullString
		if err := rows.Scan(&s.ID, &s.RecordingID, &s.TestCaseID, &s.StepNumber, &s.ActionType, &actionDesc, &screenshot, &selector, &input, &expected, &actual, &s.Status, &s.ExecutionTime, &s.CreatedAt); err != nil {
			return nil, err
		}
		if actionDesc.Valid {
			s.ActionDescription = actionDesc.String
		}
		if screenshot.Valid {
			s.ScreenshotURL = screenshot.String
		}
		if selector.Valid {
			s.ElementSelector = &selector.String
		}
		if input.Valid {
			s.InputData = input.String
		}
		if expected.Valid {
			s.ExpectedResult = &expected.String
		}
		if actual.Valid {
			s.ActualResult = &actual.String
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListRunEvents returns a run's audit rows in append order.
func (r Repo) ListRunEvents(ctx context.Context, runID string) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,run_id,entity_kind,entity_id,payload_json FROM events WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var runIDCol, entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &runIDCol, &e.EntityKind, &entityID, &e.Payload); err != nil {
			return nil, err
		}
		if runIDCol.Valid {
			e.RunID = runIDCol.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
