package question

import (
	"fmt"
	"strings"
)

const (
	minAnswers = 2
	maxAnswers = 10
)

// validateAnswers checks one question's declared answer set: 2-10 answers,
// exactly one marked correct, every order positive and unique. questionLabel
// identifies the question in the error message ("question 3").
func validateAnswers(answers []AnswerSpec, questionLabel string) error {
	if len(answers) == 0 {
		return fmt.Errorf("%w: %s has no answers", ErrInvalidInput, questionLabel)
	}
	if len(answers) < minAnswers || len(answers) > maxAnswers {
		return fmt.Errorf("%w: %s must have between %d and %d answers, got %d",
			ErrInvalidInput, questionLabel, minAnswers, maxAnswers, len(answers))
	}

	correct := 0
	seenOrder := make(map[int]struct{}, len(answers))
	for i, a := range answers {
		if strings.TrimSpace(a.Content) == "" {
			return fmt.Errorf("%w: %s answer %d has empty content", ErrInvalidInput, questionLabel, i+1)
		}
		if a.Order <= 0 {
			return fmt.Errorf("%w: %s answer %d is missing its order", ErrInvalidInput, questionLabel, i+1)
		}
		if _, dup := seenOrder[a.Order]; dup {
			return fmt.Errorf("%w: %s has duplicate answer order %d", ErrInvalidInput, questionLabel, a.Order)
		}
		seenOrder[a.Order] = struct{}{}
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: %s must have exactly one correct answer, got %d", ErrInvalidInput, questionLabel, correct)
	}
	return nil
}

// validateQuestionNumbers rejects duplicate question numbers within one
// group-edit request.
func validateQuestionNumbers(questions []QuestionSpec) error {
	seen := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		if q.Number <= 0 {
			return fmt.Errorf("%w: question number must be positive, got %d", ErrInvalidInput, q.Number)
		}
		if _, dup := seen[q.Number]; dup {
			return fmt.Errorf("%w: duplicate question number %d", ErrInvalidInput, q.Number)
		}
		seen[q.Number] = struct{}{}
	}
	return nil
}

// validateCreateStrict enforces the create path's rule that no spec may carry
// an id.
func validateCreateStrict(questions []QuestionSpec, files []FileSpec) error {
	for _, q := range questions {
		if q.ID != nil {
			return fmt.Errorf("%w: question id must be null in create", ErrInvalidInput)
		}
		for _, a := range q.Answers {
			if a.ID != nil {
				return fmt.Errorf("%w: answer id must be null in create", ErrInvalidInput)
			}
		}
	}
	for _, f := range files {
		if f.ID != nil {
			return fmt.Errorf("%w: file id must be null in create", ErrInvalidInput)
		}
	}
	return nil
}

func questionLabel(q QuestionSpec) string {
	return fmt.Sprintf("question %d", q.Number)
}
