package tag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagExists    = errors.New("tag already exists")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Service) CreateTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > 120 {
		return nil, fmt.Errorf("%w: name is too long", ErrInvalidInput)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tags WHERE lower(name) = lower($1) AND status <> 'deleted')`,
		name,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check tag name: %w", err)
	}
	if exists {
		return nil, ErrTagExists
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, status, created_at)
		VALUES ($1, 'active', now())
		RETURNING id, name, status, created_at
	`, name)
	out, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return out, nil
}

func (s *Service) GetTag(ctx context.Context, id int64) (*Tag, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: tag id must be positive", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at
		FROM tags
		WHERE id = $1 AND status <> 'deleted'
	`, id)
	out, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("load tag: %w", err)
	}
	return out, nil
}

func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, created_at
		FROM tags
		WHERE status = 'active'
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		item, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

// DeleteTag soft-deletes the tag itself. Existing question mappings are left
// alone; a mapping's lifecycle is independent of the tag's.
func (s *Service) DeleteTag(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: tag id must be positive", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET status = 'deleted' WHERE id = $1 AND status <> 'deleted'
	`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if affected == 0 {
		return ErrTagNotFound
	}
	return nil
}

func scanTag(scanner interface{ Scan(dest ...any) error }) (*Tag, error) {
	var out Tag
	if err := scanner.Scan(&out.ID, &out.Name, &out.Status, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
