package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"autoqa/internal/automation"
	"autoqa/internal/config"
	"autoqa/internal/domain"
	"autoqa/internal/events"
	"autoqa/internal/repo"
	"autoqa/internal/safeurl"
)

// Engine owns run intake and the background pipeline that drives each run
// from intake to its terminal status.
type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Config     *config.Config
	Automation *automation.Client
	Now        func() time.Time
	// Seed feeds the per-run simulator RNG. Overridden in tests for
	// reproducible outcomes.
	Seed func() int64

	wg sync.WaitGroup
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	e := &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		Seed:   func() int64 { return time.Now().UnixNano() },
	}
	if cfg != nil && cfg.Automation.Endpoint != "" {
		e.Automation = &automation.Client{Endpoint: cfg.Automation.Endpoint, Token: cfg.Automation.Token}
	}
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) seed() int64 {
	if e.Seed != nil {
		return e.Seed()
	}
	return time.Now().UnixNano()
}

// Wait blocks until every in-flight run pipeline has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

var validAIModels = []string{
	"hackathon-gemini-2.5-pro", "hackathon-gemini-2.5-flash", "hackathon-gemini-2.0-flash",
	"hackathon-azure-gpt-5.2", "hackathon-azure-gpt-5.1", "hackathon-azure-gpt-4.1",
}

var validTestTypes = []string{
	"functional", "security", "performance", "accessibility", "visual",
	"load", "api", "data-integrity", "data-sync", "bulk-validation",
}

// StartRunOptions are the caller-supplied parameters for a new run.
// Unknown enum values silently fall back to defaults; only the URL is
// strictly validated.
type StartRunOptions struct {
	URL                 string
	Username            string
	Password            string
	OTP                 string
	Framework           string
	Browser             string
	Depth               string
	TestType            string
	Headless            *bool
	AIModel             string
	ExpectedRecordCount *int
	DataValidationRules string
}

// StartRun validates the target, persists the run and kicks off the
// background pipeline. It returns as soon as the run row exists.
func (e *Engine) StartRun(ctx context.Context, opts StartRunOptions) (domain.TestRun, error) {
	if e.Config == nil {
		return domain.TestRun{}, errors.New("config not loaded")
	}
	if strings.TrimSpace(opts.URL) == "" {
		return domain.TestRun{}, errors.New("url is required")
	}
	if _, err := safeurl.Validate(strings.TrimSpace(opts.URL)); err != nil {
		return domain.TestRun{}, err
	}

	limits := e.Config.Limits
	sanitized := StartRunOptions{
		URL:                 truncate(strings.TrimSpace(opts.URL), limits.URLLength),
		Username:            truncate(opts.Username, limits.CredentialLength),
		Password:            truncate(opts.Password, limits.CredentialLength),
		OTP:                 truncate(opts.OTP, limits.OTPLength),
		Framework:           pick(opts.Framework, []string{"playwright", "cypress", "selenium"}, e.Config.Defaults.Framework),
		Browser:             pick(opts.Browser, []string{"chromium", "firefox", "webkit"}, e.Config.Defaults.Browser),
		Depth:               pick(opts.Depth, []string{"quick", "standard", "exhaustive"}, e.Config.Defaults.Depth),
		TestType:            pick(opts.TestType, validTestTypes, e.Config.Defaults.TestType),
		AIModel:             pick(opts.AIModel, validAIModels, e.Config.Defaults.AIModel),
		ExpectedRecordCount: opts.ExpectedRecordCount,
		DataValidationRules: truncate(opts.DataValidationRules, limits.ValidationRulesLength),
	}
	headless := opts.Headless == nil || *opts.Headless
	sanitized.Headless = &headless

	run := domain.TestRun{
		ID:        uuid.NewString(),
		URL:       sanitized.URL,
		Framework: sanitized.Framework,
		Browser:   sanitized.Browser,
		Depth:     sanitized.Depth,
		TestType:  sanitized.TestType,
		Headless:  headless,
		AIModel:   sanitized.AIModel,
		Status:    domain.RunStatusRunning,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if sanitized.Username != "" {
		run.Username = &sanitized.Username
	}
	if err := e.Repo.InsertTestRun(ctx, run); err != nil {
		return domain.TestRun{}, fmt.Errorf("insert test run: %w", err)
	}
	if err := e.Events.Append(ctx, "run.started", run.ID, "run", run.ID, events.EventPayload{
		"url":       run.URL,
		"depth":     run.Depth,
		"test_type": run.TestType,
	}); err != nil {
		return domain.TestRun{}, err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// The pipeline outlives the intake request.
		e.processRun(context.Background(), run, sanitized)
	}()

	return run, nil
}

// processRun drives the pipeline and records the terminal status. Any
// pipeline error fails the run; artifacts written before the error stay.
func (e *Engine) processRun(ctx context.Context, run domain.TestRun, opts StartRunOptions) {
	rng := rand.New(rand.NewSource(e.seed()))
	if err := e.runPipeline(ctx, run, opts, rng); err != nil {
		completedAt := e.now().UTC().Format(time.RFC3339)
		if ferr := e.Repo.FailTestRun(ctx, run.ID, completedAt, err.Error()); ferr != nil {
			// The run row keeps its last status; leave a trace in the log.
			_ = e.Events.Append(ctx, "run.fail_write_error", run.ID, "run", run.ID, events.EventPayload{
				"error":       err.Error(),
				"write_error": ferr.Error(),
			})
			return
		}
		_ = e.Events.Append(ctx, "run.failed", run.ID, "run", run.ID, events.EventPayload{"error": err.Error()})
	}
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func pick(v string, valid []string, fallback string) string {
	for _, ok := range valid {
		if v == ok {
			return v
		}
	}
	return fallback
}
