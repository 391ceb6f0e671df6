package processing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrRecordNotFound    = errors.New("processing record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotResolvable     = errors.New("record has no failures to resolve")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type CreateRecordInput struct {
	UploadID  string
	TestSetID *int64
	PartType  string
}

func (s *Service) CreateRecord(ctx context.Context, in CreateRecordInput) (*Record, error) {
	in.UploadID = strings.TrimSpace(in.UploadID)
	in.PartType = strings.TrimSpace(in.PartType)
	if in.UploadID == "" {
		return nil, fmt.Errorf("%w: upload id is required", ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO processing_records (upload_id, test_set_id, part_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', now(), now())
		RETURNING id, upload_id, test_set_id, part_type, total_found, inserted_count, duplicated_count,
			failed_count, existing_count, manually_resolved, error_message, issue_details, status,
			created_at, updated_at
	`, in.UploadID, nullInt64Ptr(in.TestSetID), in.PartType)
	out, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert processing record: %w", err)
	}
	return out, nil
}

func (s *Service) GetRecord(ctx context.Context, id int64) (*Record, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: record id must be positive", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, upload_id, test_set_id, part_type, total_found, inserted_count, duplicated_count,
			failed_count, existing_count, manually_resolved, error_message, issue_details, status,
			created_at, updated_at
		FROM processing_records
		WHERE id = $1 AND status <> 'deleted'
	`, id)
	out, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load processing record: %w", err)
	}
	return out, nil
}

func (s *Service) GetRecordByUploadID(ctx context.Context, uploadID string) (*Record, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return nil, fmt.Errorf("%w: upload id is required", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, upload_id, test_set_id, part_type, total_found, inserted_count, duplicated_count,
			failed_count, existing_count, manually_resolved, error_message, issue_details, status,
			created_at, updated_at
		FROM processing_records
		WHERE upload_id = $1 AND status <> 'deleted'
	`, uploadID)
	out, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load processing record: %w", err)
	}
	return out, nil
}

type ListRecordsFilter struct {
	TestSetID *int64
	PartType  string
	Status    RecordStatus
	Limit     int
	Offset    int
}

func (s *Service) ListRecords(ctx context.Context, f ListRecordsFilter) ([]Record, error) {
	query := `
		SELECT id, upload_id, test_set_id, part_type, total_found, inserted_count, duplicated_count,
			failed_count, existing_count, manually_resolved, error_message, issue_details, status,
			created_at, updated_at
		FROM processing_records
		WHERE status <> 'deleted'
	`
	args := make([]any, 0, 4)
	if f.TestSetID != nil && *f.TestSetID > 0 {
		args = append(args, *f.TestSetID)
		query += fmt.Sprintf(" AND test_set_id = $%d", len(args))
	}
	if strings.TrimSpace(f.PartType) != "" {
		args = append(args, strings.TrimSpace(f.PartType))
		query += fmt.Sprintf(" AND part_type = $%d", len(args))
	}
	if f.Status != "" {
		if f.Status == StatusDeleted {
			return nil, fmt.Errorf("%w: deleted records are not listable", ErrInvalidInput)
		}
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY id DESC"
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing records: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0)
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processing record: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing records: %w", err)
	}
	return items, nil
}

// MarkProcessing moves a pending record into processing.
func (s *Service) MarkProcessing(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusProcessing, func(r *Record) error { return nil })
}

// Fail flips the record to failed with zeroed counters. Used both for
// top-level "failed" callbacks and for errors escaping the whole pipeline.
func (s *Service) Fail(ctx context.Context, id int64, errMsg string) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(rec.Status, StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusFailed)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records
		SET status = 'failed',
			total_found = 0, inserted_count = 0, duplicated_count = 0,
			failed_count = 0, existing_count = 0,
			error_message = NULLIF($2, ''),
			issue_details = NULL,
			updated_at = now()
		WHERE id = $1
	`, id, strings.TrimSpace(errMsg)); err != nil {
		return fmt.Errorf("fail processing record: %w", err)
	}
	return nil
}

type CompleteInput struct {
	TotalFound   int
	Inserted     int
	Failed       int
	ErrorMessage string
	IssueDetails IssueReport
}

// Complete finishes a processing run. Partial failure still completes; the
// issue report is serialized into the row. A clean run clears both error
// fields.
func (s *Service) Complete(ctx context.Context, id int64, in CompleteInput) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(rec.Status, StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusCompleted)
	}

	var issuesJSON any
	var errMsg any
	if in.Failed > 0 {
		b, err := json.Marshal(in.IssueDetails)
		if err != nil {
			return fmt.Errorf("marshal issue details: %w", err)
		}
		issuesJSON = string(b)
		errMsg = strings.TrimSpace(in.ErrorMessage)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records
		SET status = 'completed',
			total_found = $2, inserted_count = $3, failed_count = $4,
			error_message = $5, issue_details = $6,
			updated_at = now()
		WHERE id = $1
	`, id, in.TotalFound, in.Inserted, in.Failed, errMsg, issuesJSON); err != nil {
		return fmt.Errorf("complete processing record: %w", err)
	}
	return nil
}

// MarkResolved flags a completed-with-failures record as triaged by a human.
func (s *Service) MarkResolved(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusCompleted || rec.Failed == 0 {
		return nil, ErrNotResolvable
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records SET manually_resolved = TRUE, updated_at = now() WHERE id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("mark record resolved: %w", err)
	}
	return s.GetRecord(ctx, id)
}

// Cancel aborts a record that has not yet finished.
func (s *Service) Cancel(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, StatusCanceled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusCanceled)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records SET status = 'canceled', updated_at = now() WHERE id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("cancel processing record: %w", err)
	}
	return s.GetRecord(ctx, id)
}

// SoftDelete hides a non-terminal record from all reads.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(rec.Status, StatusDeleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusDeleted)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records SET status = 'deleted', updated_at = now() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("soft delete processing record: %w", err)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, id int64, to RecordStatus, check func(*Record) error) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(rec.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, to)
	}
	if err := check(rec); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE processing_records SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(to)); err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var out Record
	var testSetID sql.NullInt64
	var errMsg sql.NullString
	var issues sql.NullString
	if err := scanner.Scan(
		&out.ID,
		&out.UploadID,
		&testSetID,
		&out.PartType,
		&out.TotalFound,
		&out.Inserted,
		&out.Duplicated,
		&out.Failed,
		&out.ExistingCount,
		&out.ManuallyResolved,
		&errMsg,
		&issues,
		&out.Status,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if testSetID.Valid {
		out.TestSetID = &testSetID.Int64
	}
	if errMsg.Valid {
		out.ErrorMessage = &errMsg.String
	}
	if issues.Valid && issues.String != "" {
		report := IssueReport{}
		if err := json.Unmarshal([]byte(issues.String), &report); err != nil {
			log.Printf("processing: record %d has unreadable issue_details: %v", out.ID, err)
		} else {
			out.IssueDetails = report
		}
	}
	return &out, nil
}

func nullInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	if *v <= 0 {
		return nil
	}
	return *v
}
