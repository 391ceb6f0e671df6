package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrTestSetNotFound = errors.New("test set not found")

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// TestSetSummary is an authoring-side content report: how much of a test set
// exists, where it came from, and how the ingestion runs behind it went.
type TestSetSummary struct {
	TestSetID        int64  `json:"test_set_id"`
	TestSetName      string `json:"test_set_name"`
	ActiveGroups     int    `json:"active_groups"`
	ManualGroups     int    `json:"manual_groups"`
	IngestedGroups   int    `json:"ingested_groups"`
	ActiveQuestions  int    `json:"active_questions"`
	ActiveFiles      int    `json:"active_files"`
	TaggedQuestions  int    `json:"tagged_questions"`
	IngestionRuns    int    `json:"ingestion_runs"`
	RunsWithFailures int    `json:"runs_with_failures"`
	UnresolvedRuns   int    `json:"unresolved_runs"`
}

func (s *Service) SummaryByTestSet(ctx context.Context, testSetID int64) (*TestSetSummary, error) {
	out := TestSetSummary{TestSetID: testSetID}

	err := s.db.QueryRowContext(ctx, `
		SELECT name FROM test_sets WHERE id = $1 AND status <> 'deleted'
	`, testSetID).Scan(&out.TestSetName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestSetNotFound
		}
		return nil, fmt.Errorf("load test set: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE source = 'manual'),
			COUNT(*) FILTER (WHERE source = 'ai_ingested')
		FROM question_groups
		WHERE test_set_id = $1 AND status = 'active'
	`, testSetID).Scan(&out.ActiveGroups, &out.ManualGroups, &out.IngestedGroups)
	if err != nil {
		return nil, fmt.Errorf("count groups: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM tag_mappings m
				WHERE m.question_id = q.id AND m.status = 'active'
			))
		FROM questions q
		JOIN question_groups g ON g.id = q.group_id AND g.status = 'active'
		WHERE g.test_set_id = $1 AND q.status = 'active'
	`, testSetID).Scan(&out.ActiveQuestions, &out.TaggedQuestions)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM files f
		JOIN question_groups g ON g.id = f.group_id AND g.status = 'active'
		WHERE g.test_set_id = $1 AND f.status = 'active'
	`, testSetID).Scan(&out.ActiveFiles)
	if err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE failed_count > 0),
			COUNT(*) FILTER (WHERE failed_count > 0 AND NOT manually_resolved)
		FROM processing_records
		WHERE test_set_id = $1 AND status = 'completed'
	`, testSetID).Scan(&out.IngestionRuns, &out.RunsWithFailures, &out.UnresolvedRuns)
	if err != nil {
		return nil, fmt.Errorf("count ingestion runs: %w", err)
	}

	return &out, nil
}
