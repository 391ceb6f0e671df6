package question

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type GroupImportRowError struct {
	GroupOrder int    `json:"group_order"`
	Error      string `json:"error"`
}

type GroupImportReport struct {
	TotalGroups   int                   `json:"total_groups"`
	SuccessGroups int                   `json:"success_groups"`
	FailedGroups  int                   `json:"failed_groups"`
	Errors        []GroupImportRowError `json:"errors"`
}

var excelHeaders = []string{
	"group_order", "part", "question_number", "question_text", "difficulty",
	"answer_content", "answer_order", "is_correct", "tags", "passage", "transcript",
}

// ImportGroupsExcel parses an .xlsx of one answer per row (question and group
// columns repeated) into bulk-create specs and drives each group through
// CreateGroup. A failing group is reported and skipped; it does not abort the
// remaining groups.
func (s *Service) ImportGroupsExcel(ctx context.Context, r io.Reader, testSetID *int64) (*GroupImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"group_order", "part", "question_number", "question_text", "answer_content", "answer_order", "is_correct"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	type pendingGroup struct {
		spec      GroupSpec
		order     []int
		questions map[int]*QuestionSpec
	}
	groupOrder := make([]int, 0)
	groups := make(map[int]*pendingGroup)

	for i, row := range rows[1:] {
		rowNo := i + 2
		gOrder, err := strconv.Atoi(cell(row, "group_order"))
		if err != nil || gOrder <= 0 {
			return nil, fmt.Errorf("row %d: invalid group_order", rowNo)
		}
		qNumber, err := strconv.Atoi(cell(row, "question_number"))
		if err != nil || qNumber <= 0 {
			return nil, fmt.Errorf("row %d: invalid question_number", rowNo)
		}
		aOrder, err := strconv.Atoi(cell(row, "answer_order"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid answer_order", rowNo)
		}

		g, ok := groups[gOrder]
		if !ok {
			g = &pendingGroup{
				spec: GroupSpec{
					TestSetID:  testSetID,
					Part:       cell(row, "part"),
					GroupOrder: gOrder,
					Passage:    cell(row, "passage"),
					Transcript: cell(row, "transcript"),
				},
				questions: make(map[int]*QuestionSpec),
			}
			groups[gOrder] = g
			groupOrder = append(groupOrder, gOrder)
		}

		q, ok := g.questions[qNumber]
		if !ok {
			q = &QuestionSpec{
				Number: qNumber,
				Text:   cell(row, "question_text"),
			}
			if raw := cell(row, "difficulty"); raw != "" {
				d, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("row %d: invalid difficulty", rowNo)
				}
				q.Difficulty = &d
			}
			for _, part := range strings.Split(cell(row, "tags"), ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				tagID, err := strconv.ParseInt(part, 10, 64)
				if err != nil || tagID <= 0 {
					return nil, fmt.Errorf("row %d: invalid tag id %q", rowNo, part)
				}
				q.TagIDs = append(q.TagIDs, tagID)
			}
			g.questions[qNumber] = q
			g.order = append(g.order, qNumber)
		}

		q.Answers = append(q.Answers, AnswerSpec{
			Content:   cell(row, "answer_content"),
			Order:     aOrder,
			IsCorrect: parseExcelBool(cell(row, "is_correct")),
		})
	}

	report := &GroupImportReport{TotalGroups: len(groupOrder), Errors: []GroupImportRowError{}}
	for _, gOrder := range groupOrder {
		g := groups[gOrder]
		in := CreateGroupInput{Group: g.spec}
		for _, qNumber := range g.order {
			in.Questions = append(in.Questions, *g.questions[qNumber])
		}
		if _, err := s.CreateGroup(ctx, in); err != nil {
			report.FailedGroups++
			report.Errors = append(report.Errors, GroupImportRowError{GroupOrder: gOrder, Error: err.Error()})
			continue
		}
		report.SuccessGroups++
	}
	return report, nil
}

// ExportGroupsExcel writes the active question tree of one test set back out
// in the import layout.
func (s *Service) ExportGroupsExcel(ctx context.Context, testSetID int64) ([]byte, error) {
	if testSetID <= 0 {
		return nil, fmt.Errorf("%w: test set id must be positive", ErrInvalidInput)
	}
	if err := s.ensureTestSet(ctx, s.db, testSetID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.group_order, g.part, g.transcript, g.passage,
			q.id, q.number, q.text, q.difficulty,
			a.content, a.answer_order, a.is_correct
		FROM question_groups g
		JOIN questions q ON q.group_id = g.id AND q.status = 'active'
		JOIN answers a ON a.question_id = q.id AND a.status = 'active'
		WHERE g.test_set_id = $1 AND g.status = 'active'
		ORDER BY g.group_order ASC, g.id ASC, q.number ASC, a.answer_order ASC
	`, testSetID)
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	defer rows.Close()

	type exportRow struct {
		groupOrder int
		part       string
		transcript string
		passage    string
		questionID int64
		number     int
		text       string
		difficulty *int
		content    string
		order      int
		isCorrect  bool
	}
	items := make([]exportRow, 0)
	for rows.Next() {
		var it exportRow
		var difficulty sql.NullInt64
		if err := rows.Scan(
			&it.groupOrder, &it.part, &it.transcript, &it.passage,
			&it.questionID, &it.number, &it.text, &difficulty,
			&it.content, &it.order, &it.isCorrect,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		if difficulty.Valid {
			d := int(difficulty.Int64)
			it.difficulty = &d
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}

	tagsByQuestion := make(map[int64][]int64)
	for _, it := range items {
		if _, done := tagsByQuestion[it.questionID]; done {
			continue
		}
		tagIDs, err := s.loadTagIDs(ctx, it.questionID)
		if err != nil {
			return nil, err
		}
		tagsByQuestion[it.questionID] = tagIDs
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range excelHeaders {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cellName, h)
	}
	for i, it := range items {
		rowNo := i + 2
		difficulty := ""
		if it.difficulty != nil {
			difficulty = strconv.Itoa(*it.difficulty)
		}
		tagParts := make([]string, 0, len(tagsByQuestion[it.questionID]))
		for _, id := range tagsByQuestion[it.questionID] {
			tagParts = append(tagParts, strconv.FormatInt(id, 10))
		}
		values := []any{
			it.groupOrder,
			it.part,
			it.number,
			it.text,
			difficulty,
			it.content,
			it.order,
			it.isCorrect,
			strings.Join(tagParts, ","),
			it.passage,
			it.transcript,
		}
		for col, v := range values {
			cellName, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			_ = f.SetCellValue(sheet, cellName, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "K", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func parseExcelBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
