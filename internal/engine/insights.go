package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoqa/internal/domain"
)

// writeInsights stores the coverage recommendation and the standing
// security advisory for a run.
func (e *Engine) writeInsights(ctx context.Context, run domain.TestRun, pages []domain.DiscoveredPage, totalCases int) error {
	pageURLs := make([]string, 0, len(pages))
	for _, p := range pages {
		pageURLs = append(pageURLs, p.URL)
	}
	if len(pageURLs) == 0 {
		pageURLs = []string{run.URL}
	}

	insights := []domain.Insight{
		{
			ID:            uuid.NewString(),
			TestRunID:     run.ID,
			InsightType:   "recommendation",
			Severity:      "medium",
			Title:         "Recommended Test Coverage",
			Description:   fmt.Sprintf("Based on the analysis of %s, we recommend adding %d additional test cases for complete coverage.", run.URL, totalCases),
			AffectedPages: pageURLs,
			CreatedAt:     e.now().UTC().Format(time.RFC3339),
		},
		{
			ID:            uuid.NewString(),
			TestRunID:     run.ID,
			InsightType:   "security",
			Severity:      "high",
			Title:         "Security Testing Needed",
			Description:   "Consider adding security tests for XSS, CSRF, and authentication bypass vulnerabilities.",
			AffectedPages: []string{run.URL},
			CreatedAt:     e.now().UTC().Format(time.RFC3339),
		},
	}
	for _, in := range insights {
		if err := e.Repo.InsertInsight(ctx, in); err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}
	}
	return nil
}
