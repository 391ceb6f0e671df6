package question

import (
	"errors"
	"testing"
)

func TestValidateAnswers(t *testing.T) {
	tests := []struct {
		name    string
		answers []AnswerSpec
		wantErr bool
	}{
		{
			name: "valid pair",
			answers: []AnswerSpec{
				{Content: "A", Order: 1, IsCorrect: true},
				{Content: "B", Order: 2},
			},
		},
		{
			name: "valid four options",
			answers: []AnswerSpec{
				{Content: "A", Order: 1},
				{Content: "B", Order: 2, IsCorrect: true},
				{Content: "C", Order: 3},
				{Content: "D", Order: 4},
			},
		},
		{
			name:    "no answers",
			answers: nil,
			wantErr: true,
		},
		{
			name: "single answer below minimum",
			answers: []AnswerSpec{
				{Content: "A", Order: 1, IsCorrect: true},
			},
			wantErr: true,
		},
		{
			name:    "eleven answers above maximum",
			answers: manyAnswers(11),
			wantErr: true,
		},
		{
			name:    "ten answers at maximum",
			answers: manyAnswers(10),
		},
		{
			name: "two correct answers",
			answers: []AnswerSpec{
				{Content: "A", Order: 1, IsCorrect: true},
				{Content: "B", Order: 2, IsCorrect: true},
			},
			wantErr: true,
		},
		{
			name: "no correct answer",
			answers: []AnswerSpec{
				{Content: "A", Order: 1},
				{Content: "B", Order: 2},
			},
			wantErr: true,
		},
		{
			name: "duplicate order",
			answers: []AnswerSpec{
				{Content: "A", Order: 1, IsCorrect: true},
				{Content: "B", Order: 1},
			},
			wantErr: true,
		},
		{
			name: "missing order",
			answers: []AnswerSpec{
				{Content: "A", Order: 0, IsCorrect: true},
				{Content: "B", Order: 2},
			},
			wantErr: true,
		},
		{
			name: "empty content",
			answers: []AnswerSpec{
				{Content: "  ", Order: 1, IsCorrect: true},
				{Content: "B", Order: 2},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAnswers(tc.answers, "question 1")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateQuestionNumbers(t *testing.T) {
	tests := []struct {
		name      string
		questions []QuestionSpec
		wantErr   bool
	}{
		{name: "distinct numbers", questions: []QuestionSpec{{Number: 1}, {Number: 2}, {Number: 5}}},
		{name: "duplicate number", questions: []QuestionSpec{{Number: 1}, {Number: 1}}, wantErr: true},
		{name: "zero number", questions: []QuestionSpec{{Number: 0}}, wantErr: true},
		{name: "negative number", questions: []QuestionSpec{{Number: -3}}, wantErr: true},
		{name: "empty set", questions: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateQuestionNumbers(tc.questions)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateCreateStrict(t *testing.T) {
	id := int64(7)

	if err := validateCreateStrict([]QuestionSpec{{Number: 1}}, []FileSpec{{MediaType: "image"}}); err != nil {
		t.Fatalf("all-null ids should pass, got %v", err)
	}

	cases := []struct {
		name      string
		questions []QuestionSpec
		files     []FileSpec
	}{
		{name: "question id set", questions: []QuestionSpec{{ID: &id, Number: 1}}},
		{name: "answer id set", questions: []QuestionSpec{{Number: 1, Answers: []AnswerSpec{{ID: &id, Content: "A", Order: 1}}}}},
		{name: "file id set", files: []FileSpec{{ID: &id}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateCreateStrict(tc.questions, tc.files)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func manyAnswers(n int) []AnswerSpec {
	out := make([]AnswerSpec, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, AnswerSpec{Content: "opt", Order: i, IsCorrect: i == 1})
	}
	return out
}
