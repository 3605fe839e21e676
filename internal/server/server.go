package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"autoqa/internal/domain"
	"autoqa/internal/engine"
	"autoqa/internal/repo"
	"autoqa/internal/safeurl"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"blocked_url"`
	Message string         `json:"message" example:"internal URLs are not allowed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the AutoQA API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("AutoQA API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerRuns(group, cfg.Engine)
	registerRecordings(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, safeurl.ErrInvalidFormat):
		return newAPIError(http.StatusBadRequest, "invalid_url", err.Error(), nil)
	case errors.Is(err, safeurl.ErrUnsupportedScheme):
		return newAPIError(http.StatusBadRequest, "unsupported_scheme", err.Error(), nil)
	case errors.Is(err, safeurl.ErrBlockedTarget):
		return newAPIError(http.StatusBadRequest, "blocked_url", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>AutoQA API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerRuns(api huma.API, e *engine.Engine) {
	type runPath struct {
		RunID string `path:"run_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "start-run",
		Method:        http.MethodPost,
		Path:          "/runs",
		Summary:       "Start a test run",
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body StartRunRequest `json:"body"`
	}) (*struct {
		Body StartRunResponse `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.URL) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "url is required", nil)
		}
		opts := engine.StartRunOptions{
			URL:                 input.Body.URL,
			Framework:           input.Body.Framework,
			Browser:             input.Body.Browser,
			Depth:               input.Body.Depth,
			TestType:            input.Body.TestType,
			Headless:            input.Body.Headless,
			AIModel:             input.Body.AIModel,
			ExpectedRecordCount: input.Body.ExpectedRecordCount,
			DataValidationRules: input.Body.DataValidationRules,
		}
		if input.Body.Username != nil {
			opts.Username = *input.Body.Username
		}
		if input.Body.Password != nil {
			opts.Password = *input.Body.Password
		}
		if input.Body.OTP != nil {
			opts.OTP = *input.Body.OTP
		}
		run, err := e.StartRun(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StartRunResponse `json:"body"`
		}{Body: StartRunResponse{TestRunID: run.ID, Status: "started"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List test runs",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.TestRun `json:"body"`
	}, error) {
		items, err := e.Repo.ListTestRuns(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TestRun{}
		}
		return &struct {
			Body []domain.TestRun `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get a test run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body domain.TestRun `json:"body"`
	}, error) {
		run, err := e.Repo.GetTestRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TestRun `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run-progress",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/progress",
		Summary:     "Run progress for polling",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body RunProgressResponse `json:"body"`
	}, error) {
		run, err := e.Repo.GetTestRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := e.Repo.CountTestCasesByStatus(ctx, run.ID)
		if err != nil {
			return nil, handleError(err)
		}
		passed, failed := counts["passed"], counts["failed"]
		pending := run.TotalTests - passed - failed
		if pending < 0 {
			pending = 0
		}
		current := ""
		if run.Status == domain.RunStatusExecutingTests {
			current, err = e.Repo.LatestTestCaseName(ctx, run.ID)
			if err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body RunProgressResponse `json:"body"`
		}{Body: RunProgressResponse{
			Total:       run.TotalTests,
			Passed:      passed,
			Failed:      failed,
			Pending:     pending,
			Status:      run.Status,
			CurrentTest: current,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-pages",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/pages",
		Summary:     "List discovered pages",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body []domain.DiscoveredPage `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTestRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListDiscoveredPages(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.DiscoveredPage{}
		}
		return &struct {
			Body []domain.DiscoveredPage `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-cases",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/cases",
		Summary:     "List executed test cases",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID  string `path:"run_id"`
		Status string `query:"status"`
		Limit  int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []TestCaseResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTestRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTestCases(ctx, repo.TestCaseFilters{
			TestRunID: input.RunID,
			Status:    input.Status,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TestCaseResponse `json:"body"`
		}{Body: mapTestCases(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-insights",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/insights",
		Summary:     "List run insights",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body []domain.Insight `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTestRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListInsights(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Insight{}
		}
		return &struct {
			Body []domain.Insight `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-recordings",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/recordings",
		Summary:     "List run recordings",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body []domain.TestRecording `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTestRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRecordings(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TestRecording{}
		}
		return &struct {
			Body []domain.TestRecording `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-events",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/events",
		Summary:     "List run audit events",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runPath) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTestRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRunEvents(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

func registerRecordings(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-recording-steps",
		Method:      http.MethodGet,
		Path:        "/recordings/{recording_id}/steps",
		Summary:     "List recording steps",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RecordingID string `path:"recording_id"`
	}) (*struct {
		Body []domain.TestRecordingStep `json:"body"`
	}, error) {
		if _, err := e.Repo.GetRecording(ctx, input.RecordingID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRecordingSteps(ctx, input.RecordingID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TestRecordingStep{}
		}
		return &struct {
			Body []domain.TestRecordingStep `json:"body"`
		}{Body: items}, nil
	})
}
