package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"autoqa/internal/config"
	"autoqa/internal/db"
	"autoqa/internal/domain"
	"autoqa/internal/engine"
	"autoqa/internal/migrate"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Seed = func() int64 { return 7 }
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealth(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, body)
	}
}

func TestStartRunRejectsInternalURL(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/runs", StartRunRequest{URL: "http://localhost:3000"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", res.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	if envelope.Error.Code != "blocked_url" {
		t.Fatalf("error code = %q, want blocked_url", envelope.Error.Code)
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, body)
	}
	var runs []domain.TestRun
	if err := json.Unmarshal(body, &runs); err != nil {
		t.Fatalf("decode runs: %v (%s)", err, body)
	}
	if len(runs) != 0 {
		t.Fatalf("rejected intake left %d runs", len(runs))
	}
}

func TestStartRunAndPollToCompletion(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/runs", StartRunRequest{
		URL:   "https://example.com",
		Depth: "quick",
	})
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d: %s", res.StatusCode, body)
	}
	var started StartRunResponse
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("decode start response: %v (%s)", err, body)
	}
	if started.Status != "started" || started.TestRunID == "" {
		t.Fatalf("start response = %+v", started)
	}

	deadline := time.Now().Add(30 * time.Second)
	var run domain.TestRun
	for {
		res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/"+started.TestRunID, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("poll status = %d: %s", res.StatusCode, body)
		}
		if err := json.Unmarshal(body, &run); err != nil {
			t.Fatalf("decode run: %v", err)
		}
		if run.Status == domain.RunStatusCompleted || run.Status == domain.RunStatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run stuck in %s", run.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("run status = %s (%v)", run.Status, run.ErrorMessage)
	}
	if run.TotalTests != 60 || run.PassedTests+run.FailedTests != 60 {
		t.Fatalf("counts: total=%d passed=%d failed=%d", run.TotalTests, run.PassedTests, run.FailedTests)
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/"+run.ID+"/progress", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("progress status = %d: %s", res.StatusCode, body)
	}
	var prog RunProgressResponse
	if err := json.Unmarshal(body, &prog); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if prog.Status != domain.RunStatusCompleted || prog.Pending != 0 || prog.Passed+prog.Failed != prog.Total {
		t.Fatalf("progress = %+v", prog)
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/"+run.ID+"/cases?status=failed", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cases status = %d: %s", res.StatusCode, body)
	}
	var cases []TestCaseResponse
	if err := json.Unmarshal(body, &cases); err != nil {
		t.Fatalf("decode cases: %v", err)
	}
	if len(cases) != run.FailedTests {
		t.Fatalf("failed cases = %d, want %d", len(cases), run.FailedTests)
	}
	for _, c := range cases {
		if c.Status != "failed" || c.ErrorMessage == nil {
			t.Fatalf("case %s status=%s msg=%v", c.TestName, c.Status, c.ErrorMessage)
		}
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/"+run.ID+"/insights", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("insights status = %d: %s", res.StatusCode, body)
	}
	var insights []domain.Insight
	if err := json.Unmarshal(body, &insights); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("insights = %d, want 2", len(insights))
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/"+run.ID+"/recordings", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recordings status = %d: %s", res.StatusCode, body)
	}
	var recs []domain.TestRecording
	if err := json.Unmarshal(body, &recs); err != nil {
		t.Fatalf("decode recordings: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != domain.RecordingStatusCompleted {
		t.Fatalf("recordings = %+v", recs)
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/recordings/"+recs[0].ID+"/steps", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("steps status = %d: %s", res.StatusCode, body)
	}
	var steps []domain.TestRecordingStep
	if err := json.Unmarshal(body, &steps); err != nil {
		t.Fatalf("decode steps: %v", err)
	}
	if len(steps) != 60 {
		t.Fatalf("steps = %d, want 60", len(steps))
	}
	if steps[0].StepNumber != 1 || steps[59].StepNumber != 60 {
		t.Fatalf("step numbering off: first=%d last=%d", steps[0].StepNumber, steps[59].StepNumber)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs/nope", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d: %s", res.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "not_found" {
		t.Fatalf("error envelope = %s", body)
	}
}

func TestRunOrderingNewestFirst(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()

	var ids []string
	for _, target := range []string{"https://a.example.com", "https://b.example.com"} {
		res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/runs", StartRunRequest{URL: target, Depth: "quick"})
		if res.StatusCode != http.StatusAccepted {
			t.Fatalf("start status = %d: %s", res.StatusCode, body)
		}
		var started StartRunResponse
		if err := json.Unmarshal(body, &started); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ids = append(ids, started.TestRunID)
		time.Sleep(1100 * time.Millisecond) // distinct created_at seconds
	}
	srv.Engine.Wait()

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, body)
	}
	var runs []domain.TestRun
	if err := json.Unmarshal(body, &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != ids[1] || runs[1].ID != ids[0] {
		t.Fatalf("order = %s,%s want newest first", runs[0].ID, runs[1].ID)
	}
}
