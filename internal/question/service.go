package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"testbank/internal/storage"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrGroupNotFound    = errors.New("question group not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrTestSetNotFound  = errors.New("test set not found")
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Service struct {
	db    *sql.DB
	store storage.BlobStore
}

func NewService(db *sql.DB, store storage.BlobStore) *Service {
	return &Service{db: db, store: store}
}

type CreateGroupInput struct {
	Group     GroupSpec
	Questions []QuestionSpec
	Files     []FileSpec
	Binaries  []Binary
}

type UpdateGroupInput = CreateGroupInput

// CreateGroup persists a whole aggregate in one transaction. The create path
// is strict: any spec carrying an id is rejected before anything is written.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (groupID int64, err error) {
	if strings.TrimSpace(in.Group.Part) == "" {
		return 0, fmt.Errorf("%w: part is required", ErrInvalidInput)
	}
	if err := validateCreateStrict(in.Questions, in.Files); err != nil {
		return 0, err
	}
	if err := validateQuestionNumbers(in.Questions); err != nil {
		return 0, err
	}
	for _, q := range in.Questions {
		if err := validateAnswers(q.Answers, questionLabel(q)); err != nil {
			return 0, err
		}
	}
	binding, err := positionalBinding(in.Files, len(in.Binaries))
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var saved savedBlobs
	defer func() {
		if err != nil {
			saved.cleanup(ctx, s)
		}
	}()

	if in.Group.TestSetID != nil {
		if err = s.ensureTestSet(ctx, tx, *in.Group.TestSetID); err != nil {
			return 0, err
		}
	}

	groupID, err = insertGroup(ctx, tx, in.Group, SourceManual, nil)
	if err != nil {
		return 0, err
	}

	for _, q := range in.Questions {
		if _, err = s.insertQuestion(ctx, tx, groupID, q); err != nil {
			return 0, err
		}
	}

	if err = s.createFiles(ctx, tx, groupID, in.Files, in.Binaries, binding, &saved); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return groupID, nil
}

// UpdateGroup reconciles the requested aggregate against the persisted one.
// Each child collection is diffed independently; removing a question also
// soft-deletes its answers. All-or-nothing: the first failure aborts the
// whole write.
func (s *Service) UpdateGroup(ctx context.Context, groupID int64, in UpdateGroupInput) (_ int64, err error) {
	if groupID <= 0 {
		return 0, fmt.Errorf("%w: group id must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Group.Part) == "" {
		return 0, fmt.Errorf("%w: part is required", ErrInvalidInput)
	}
	if err := validateQuestionNumbers(in.Questions); err != nil {
		return 0, err
	}
	for _, q := range in.Questions {
		if err := validateAnswers(q.Answers, questionLabel(q)); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var saved savedBlobs
	defer func() {
		if err != nil {
			saved.cleanup(ctx, s)
		}
	}()

	var status Status
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM question_groups WHERE id = $1
	`, groupID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrGroupNotFound
		}
		return 0, fmt.Errorf("load group: %w", err)
	}
	if status == StatusDeleted {
		return 0, ErrGroupNotFound
	}

	if in.Group.TestSetID != nil {
		if err = s.ensureTestSet(ctx, tx, *in.Group.TestSetID); err != nil {
			return 0, err
		}
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE question_groups
		SET test_set_id = $2,
			part = $3,
			difficulty = $4,
			transcript = $5,
			passage = $6,
			explanation = $7,
			notes = $8,
			group_order = $9,
			updated_at = now()
		WHERE id = $1
	`, groupID, nullInt64Ptr(in.Group.TestSetID), in.Group.Part, nullIntPtr(in.Group.Difficulty),
		in.Group.Transcript, in.Group.Passage, in.Group.Explanation, in.Group.Notes, in.Group.GroupOrder); err != nil {
		return 0, fmt.Errorf("update group: %w", err)
	}

	if err = s.reconcileQuestions(ctx, tx, groupID, in.Questions); err != nil {
		return 0, err
	}
	if err = s.reconcileFiles(ctx, tx, groupID, in.Files, in.Binaries, &saved); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return groupID, nil
}

func (s *Service) reconcileQuestions(ctx context.Context, tx *sql.Tx, groupID int64, specs []QuestionSpec) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM questions WHERE group_id = $1 AND status = 'active'
	`, groupID)
	if err != nil {
		return fmt.Errorf("query questions: %w", err)
	}
	existing := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan question id: %w", err)
		}
		existing[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate questions: %w", err)
	}

	requested := make(map[int64]struct{})
	for _, q := range specs {
		if q.ID == nil {
			if _, err := s.insertQuestion(ctx, tx, groupID, q); err != nil {
				return err
			}
			continue
		}
		if _, owned := existing[*q.ID]; !owned {
			return fmt.Errorf("%w: question %d is not an active question of this group", ErrQuestionNotFound, *q.ID)
		}
		requested[*q.ID] = struct{}{}
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions
			SET number = $2, text = $3, difficulty = $4, updated_at = now()
			WHERE id = $1 AND group_id = $5 AND status = 'active'
		`, *q.ID, q.Number, q.Text, nullIntPtr(q.Difficulty), groupID); err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if err := s.reconcileAnswers(ctx, tx, *q.ID, q.Answers); err != nil {
			return err
		}
		if err := reconcileTags(ctx, tx, *q.ID, q.TagIDs); err != nil {
			return err
		}
	}

	for id := range existing {
		if _, keep := requested[id]; keep {
			continue
		}
		if err := softDeleteQuestion(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) reconcileAnswers(ctx context.Context, tx *sql.Tx, questionID int64, specs []AnswerSpec) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM answers WHERE question_id = $1 AND status = 'active'
	`, questionID)
	if err != nil {
		return fmt.Errorf("query answers: %w", err)
	}
	existing := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan answer id: %w", err)
		}
		existing[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate answers: %w", err)
	}

	requested := make(map[int64]struct{})
	for _, a := range specs {
		if a.ID == nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO answers (question_id, content, answer_order, is_correct, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, 'active', now(), now())
			`, questionID, a.Content, a.Order, a.IsCorrect); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
			continue
		}
		if _, owned := existing[*a.ID]; !owned {
			return fmt.Errorf("%w: answer %d is not an active answer of this question", ErrAnswerNotFound, *a.ID)
		}
		requested[*a.ID] = struct{}{}
		if _, err := tx.ExecContext(ctx, `
			UPDATE answers
			SET content = $2, answer_order = $3, is_correct = $4, updated_at = now()
			WHERE id = $1 AND question_id = $5 AND status = 'active'
		`, *a.ID, a.Content, a.Order, a.IsCorrect, questionID); err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
	}

	for id := range existing {
		if _, keep := requested[id]; keep {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE answers SET status = 'deleted', updated_at = now() WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("soft delete answer: %w", err)
		}
	}
	return nil
}

// softDeleteQuestion marks the question deleted and then its answers: the one
// cascading soft-delete in the model, written out as two explicit statements.
func softDeleteQuestion(ctx context.Context, tx *sql.Tx, questionID int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE questions SET status = 'deleted', updated_at = now() WHERE id = $1
	`, questionID); err != nil {
		return fmt.Errorf("soft delete question: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE answers SET status = 'deleted', updated_at = now()
		WHERE question_id = $1 AND status = 'active'
	`, questionID); err != nil {
		return fmt.Errorf("soft delete answers: %w", err)
	}
	return nil
}

func (s *Service) insertQuestion(ctx context.Context, tx *sql.Tx, groupID int64, q QuestionSpec) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO questions (group_id, number, text, difficulty, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', now(), now())
		RETURNING id
	`, groupID, q.Number, q.Text, nullIntPtr(q.Difficulty)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}

	for _, a := range q.Answers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO answers (question_id, content, answer_order, is_correct, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'active', now(), now())
		`, id, a.Content, a.Order, a.IsCorrect); err != nil {
			return 0, fmt.Errorf("insert answer: %w", err)
		}
	}

	if len(q.TagIDs) > 0 {
		if err := resolveTags(ctx, tx, q.TagIDs); err != nil {
			return 0, err
		}
		for _, tagID := range q.TagIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tag_mappings (question_id, tag_id, status, created_at)
				VALUES ($1, $2, 'active', now())
			`, id, tagID); err != nil {
				return 0, fmt.Errorf("insert tag mapping: %w", err)
			}
		}
	}
	return id, nil
}

func insertGroup(ctx context.Context, q querier, spec GroupSpec, source Source, processingRecordID *int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO question_groups (
			test_set_id, part, difficulty, transcript, passage, explanation, notes,
			group_order, source, processing_record_id, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active', now(), now()
		)
		RETURNING id
	`, nullInt64Ptr(spec.TestSetID), spec.Part, nullIntPtr(spec.Difficulty), spec.Transcript,
		spec.Passage, spec.Explanation, spec.Notes, spec.GroupOrder, string(source), nullInt64Ptr(processingRecordID)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	return id, nil
}

func (s *Service) ensureTestSet(ctx context.Context, q querier, testSetID int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM test_sets WHERE id = $1 AND status = 'active')
	`, testSetID).Scan(&exists); err != nil {
		return fmt.Errorf("check test set: %w", err)
	}
	if !exists {
		return ErrTestSetNotFound
	}
	return nil
}

// IngestedGroupInput is the ingestion pipeline's group creation request. The
// provenance note lands in the group's notes field.
type IngestedGroupInput struct {
	TestSetID          int64
	Part               string
	Transcript         string
	GroupOrder         int
	Notes              string
	ProcessingRecordID int64
}

// CreateIngestedGroup inserts one AI-sourced group row. Questions are added
// one at a time afterwards so a bad question cannot take the group down.
func (s *Service) CreateIngestedGroup(ctx context.Context, in IngestedGroupInput) (int64, error) {
	if strings.TrimSpace(in.Part) == "" {
		return 0, fmt.Errorf("%w: part is required", ErrInvalidInput)
	}
	if err := s.ensureTestSet(ctx, s.db, in.TestSetID); err != nil {
		return 0, err
	}
	spec := GroupSpec{
		TestSetID:  &in.TestSetID,
		Part:       in.Part,
		Transcript: in.Transcript,
		Notes:      in.Notes,
		GroupOrder: in.GroupOrder,
	}
	return insertGroup(ctx, s.db, spec, SourceAIIngested, &in.ProcessingRecordID)
}

// AddQuestion validates and persists one question with its answers in its own
// transaction. Used by the ingestion pipeline for per-question isolation.
func (s *Service) AddQuestion(ctx context.Context, groupID int64, q QuestionSpec) (int64, error) {
	if err := validateAnswers(q.Answers, questionLabel(q)); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM question_groups WHERE id = $1`, groupID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrGroupNotFound
		}
		return 0, fmt.Errorf("load group: %w", err)
	}
	if status == StatusDeleted {
		return 0, ErrGroupNotFound
	}

	id, err := s.insertQuestion(ctx, tx, groupID, q)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

// GetGroup loads the active view of one aggregate: non-deleted group, active
// questions with their active answers and tag ids, active files.
func (s *Service) GetGroup(ctx context.Context, groupID int64) (*GroupTree, error) {
	if groupID <= 0 {
		return nil, fmt.Errorf("%w: group id must be positive", ErrInvalidInput)
	}

	var out GroupTree
	var testSetID sql.NullInt64
	var difficulty sql.NullInt64
	var recordID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, test_set_id, part, difficulty, transcript, passage, explanation, notes,
			group_order, source, processing_record_id, status, created_at, updated_at
		FROM question_groups
		WHERE id = $1 AND status <> 'deleted'
	`, groupID).Scan(
		&out.Group.ID,
		&testSetID,
		&out.Group.Part,
		&difficulty,
		&out.Group.Transcript,
		&out.Group.Passage,
		&out.Group.Explanation,
		&out.Group.Notes,
		&out.Group.GroupOrder,
		&out.Group.Source,
		&recordID,
		&out.Group.Status,
		&out.Group.CreatedAt,
		&out.Group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	if testSetID.Valid {
		out.Group.TestSetID = &testSetID.Int64
	}
	if difficulty.Valid {
		d := int(difficulty.Int64)
		out.Group.Difficulty = &d
	}
	if recordID.Valid {
		out.Group.ProcessingRecordID = &recordID.Int64
	}

	questions, err := s.loadQuestions(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out.Questions = questions

	files, err := s.loadFiles(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out.Files = files

	return &out, nil
}

func (s *Service) loadQuestions(ctx context.Context, groupID int64) ([]QuestionTree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, number, text, difficulty, status, created_at, updated_at
		FROM questions
		WHERE group_id = $1 AND status = 'active'
		ORDER BY number ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]QuestionTree, 0)
	for rows.Next() {
		var item QuestionTree
		var difficulty sql.NullInt64
		if err := rows.Scan(
			&item.Question.ID,
			&item.Question.GroupID,
			&item.Question.Number,
			&item.Question.Text,
			&difficulty,
			&item.Question.Status,
			&item.Question.CreatedAt,
			&item.Question.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if difficulty.Valid {
			d := int(difficulty.Int64)
			item.Question.Difficulty = &d
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	for i := range items {
		answers, err := s.loadAnswers(ctx, items[i].Question.ID)
		if err != nil {
			return nil, err
		}
		items[i].Answers = answers

		tagIDs, err := s.loadTagIDs(ctx, items[i].Question.ID)
		if err != nil {
			return nil, err
		}
		items[i].TagIDs = tagIDs
	}
	return items, nil
}

func (s *Service) loadAnswers(ctx context.Context, questionID int64) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, content, answer_order, is_correct, status
		FROM answers
		WHERE question_id = $1 AND status = 'active'
		ORDER BY answer_order ASC, id ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	items := make([]Answer, 0)
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Content, &a.Order, &a.IsCorrect, &a.Status); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return items, nil
}

func (s *Service) loadTagIDs(ctx context.Context, questionID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id FROM tag_mappings
		WHERE question_id = $1 AND status = 'active'
		ORDER BY tag_id ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query tag mappings: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag ids: %w", err)
	}
	return ids, nil
}

func (s *Service) loadFiles(ctx context.Context, groupID int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, media_type, url, display_order, status
		FROM files
		WHERE group_id = $1 AND status = 'active'
		ORDER BY display_order ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	items := make([]File, 0)
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.GroupID, &f.MediaType, &f.URL, &f.DisplayOrder, &f.Status); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return items, nil
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

func nullIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
