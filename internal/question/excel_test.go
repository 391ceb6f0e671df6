package question

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, headers []string, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatal(err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestImportGroupsExcel_MissingColumn(t *testing.T) {
	svc := &Service{}
	buf := buildSheet(t,
		[]string{"group_order", "part", "question_number"},
		[][]any{{1, "reading", 1}},
	)

	_, err := svc.ImportGroupsExcel(context.Background(), buf, nil)
	if err == nil || !strings.Contains(err.Error(), "missing required column") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestImportGroupsExcel_NoDataRows(t *testing.T) {
	svc := &Service{}
	buf := buildSheet(t, excelHeaders, nil)

	_, err := svc.ImportGroupsExcel(context.Background(), buf, nil)
	if err == nil || !strings.Contains(err.Error(), "no data rows") {
		t.Fatalf("expected no data rows error, got %v", err)
	}
}

func TestImportGroupsExcel_InvalidNumbers(t *testing.T) {
	svc := &Service{}

	tests := []struct {
		name string
		row  []any
	}{
		{name: "bad group order", row: []any{"x", "reading", 1, "Q", "", "A", 1, "true", ""}},
		{name: "bad question number", row: []any{1, "reading", "x", "Q", "", "A", 1, "true", ""}},
		{name: "bad tag id", row: []any{1, "reading", 1, "Q", "", "A", 1, "true", "abc"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := buildSheet(t, excelHeaders, [][]any{tc.row})
			if _, err := svc.ImportGroupsExcel(context.Background(), buf, nil); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseExcelBool(t *testing.T) {
	trueValues := []string{"1", "true", "TRUE", "yes", "Y", " y "}
	for _, v := range trueValues {
		if !parseExcelBool(v) {
			t.Errorf("parseExcelBool(%q) = false, want true", v)
		}
	}
	falseValues := []string{"", "0", "false", "no", "n", "maybe"}
	for _, v := range falseValues {
		if parseExcelBool(v) {
			t.Errorf("parseExcelBool(%q) = true, want false", v)
		}
	}
}
