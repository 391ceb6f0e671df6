package processing

import (
	"database/sql"
	"fmt"
	"testing"
	"time"
)

type fakeRow struct {
	vals []any
}

func (f fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.vals) {
		return fmt.Errorf("scan arity %d, want %d", len(dest), len(f.vals))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *int64:
			*d = f.vals[i].(int64)
		case *string:
			*d = f.vals[i].(string)
		case *int:
			*d = f.vals[i].(int)
		case *bool:
			*d = f.vals[i].(bool)
		case *sql.NullInt64:
			*d = f.vals[i].(sql.NullInt64)
		case *sql.NullString:
			*d = f.vals[i].(sql.NullString)
		case *RecordStatus:
			*d = f.vals[i].(RecordStatus)
		case *time.Time:
			*d = f.vals[i].(time.Time)
		default:
			return fmt.Errorf("unsupported dest %T", d)
		}
	}
	return nil
}

// recordRow lists values in the column order of scanRecord's SELECT.
func recordRow(issues sql.NullString) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{
		int64(7),
		"u-7",
		sql.NullInt64{Int64: 3, Valid: true},
		"reading",
		5,
		4,
		0,
		1,
		0,
		false,
		sql.NullString{String: "1 failed", Valid: true},
		issues,
		StatusCompleted,
		now,
		now,
	}}
}

func TestScanRecord_IssueDetails(t *testing.T) {
	issues := `{"group_1":[{"question_number":3,"error_type":"ANSWER_ERROR","message":"no correct answer"}]}`
	rec, err := scanRecord(recordRow(sql.NullString{String: issues, Valid: true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := rec.IssueDetails["group_1"]
	if !ok || len(got) != 1 || got[0].QuestionNumber != 3 || got[0].ErrorType != "ANSWER_ERROR" {
		t.Fatalf("issue details = %+v", rec.IssueDetails)
	}
}

func TestScanRecord_CorruptIssueDetails(t *testing.T) {
	rec, err := scanRecord(recordRow(sql.NullString{String: `{"group_1": not json`, Valid: true}))
	if err != nil {
		t.Fatalf("corrupt issue details must not fail the read: %v", err)
	}
	if rec.IssueDetails != nil {
		t.Fatalf("issue details = %+v, want nil", rec.IssueDetails)
	}
	if rec.ID != 7 || rec.Status != StatusCompleted || rec.Failed != 1 {
		t.Fatalf("record = %+v", rec)
	}
}
