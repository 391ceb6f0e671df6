package ingest

import (
	"errors"
	"strings"

	"testbank/internal/question"
)

const (
	errTypeAnswer     = "ANSWER_ERROR"
	errTypeOrder      = "ORDER_ERROR"
	errTypeValidation = "VALIDATION_ERROR"
	errTypeDuplicate  = "DUPLICATE_ERROR"
	errTypeGroup      = "GROUP_ERROR"
	errTypeUnknown    = "UNKNOWN_ERROR"
)

// classifyError buckets a per-question failure by message content. Duplicate
// and order checks run before the broader answer match so "duplicate answer
// order" lands in the duplicate bucket.
func classifyError(err error) string {
	if err == nil {
		return errTypeUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate"):
		return errTypeDuplicate
	case strings.Contains(msg, "order"):
		return errTypeOrder
	case strings.Contains(msg, "answer"), strings.Contains(msg, "correct"):
		return errTypeAnswer
	case errors.Is(err, question.ErrInvalidInput):
		return errTypeValidation
	default:
		return errTypeUnknown
	}
}
