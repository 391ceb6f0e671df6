package testset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrTestSetNotFound = errors.New("test set not found")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type TestSet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateTestSetInput struct {
	Name        string
	Description string
}

type UpdateTestSetInput = CreateTestSetInput

func (s *Service) CreateTestSet(ctx context.Context, in CreateTestSetInput) (*TestSet, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO test_sets (name, description, status, created_at, updated_at)
		VALUES ($1, $2, 'active', now(), now())
		RETURNING id, name, description, status, created_at, updated_at
	`, name, strings.TrimSpace(in.Description))
	out, err := scanTestSet(row)
	if err != nil {
		return nil, fmt.Errorf("insert test set: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateTestSet(ctx context.Context, id int64, in UpdateTestSetInput) (*TestSet, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: test set id must be positive", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE test_sets
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1 AND status <> 'deleted'
		RETURNING id, name, description, status, created_at, updated_at
	`, id, name, strings.TrimSpace(in.Description))
	out, err := scanTestSet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestSetNotFound
		}
		return nil, fmt.Errorf("update test set: %w", err)
	}
	return out, nil
}

func (s *Service) GetTestSet(ctx context.Context, id int64) (*TestSet, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: test set id must be positive", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, created_at, updated_at
		FROM test_sets
		WHERE id = $1 AND status <> 'deleted'
	`, id)
	out, err := scanTestSet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestSetNotFound
		}
		return nil, fmt.Errorf("load test set: %w", err)
	}
	return out, nil
}

// TestSetName resolves the display name used in provenance notes on
// AI-ingested groups.
func (s *Service) TestSetName(ctx context.Context, id int64) (string, error) {
	out, err := s.GetTestSet(ctx, id)
	if err != nil {
		return "", err
	}
	return out.Name, nil
}

func (s *Service) ListTestSets(ctx context.Context) ([]TestSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, created_at, updated_at
		FROM test_sets
		WHERE status = 'active'
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query test sets: %w", err)
	}
	defer rows.Close()

	items := make([]TestSet, 0)
	for rows.Next() {
		item, err := scanTestSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test set: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test sets: %w", err)
	}
	return items, nil
}

func (s *Service) DeleteTestSet(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: test set id must be positive", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE test_sets SET status = 'deleted', updated_at = now()
		WHERE id = $1 AND status <> 'deleted'
	`, id)
	if err != nil {
		return fmt.Errorf("delete test set: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete test set: %w", err)
	}
	if affected == 0 {
		return ErrTestSetNotFound
	}
	return nil
}

func scanTestSet(scanner interface{ Scan(dest ...any) error }) (*TestSet, error) {
	var out TestSet
	if err := scanner.Scan(&out.ID, &out.Name, &out.Description, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
