package question

import (
	"io"
	"time"
)

// Status is the row lifecycle shared by groups, questions, answers, files and
// tag mappings. Deleted rows stay in place; every query filters explicitly.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Source records which write path created a question group.
type Source string

const (
	SourceManual     Source = "manual"
	SourceAIIngested Source = "ai_ingested"
)

type Group struct {
	ID                 int64     `json:"id"`
	TestSetID          *int64    `json:"test_set_id,omitempty"`
	Part               string    `json:"part"`
	Difficulty         *int      `json:"difficulty,omitempty"`
	Transcript         string    `json:"transcript,omitempty"`
	Passage            string    `json:"passage,omitempty"`
	Explanation        string    `json:"explanation,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	GroupOrder         int       `json:"group_order"`
	Source             Source    `json:"source"`
	ProcessingRecordID *int64    `json:"processing_record_id,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Question struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"group_id"`
	Number     int       `json:"number"`
	Text       string    `json:"text"`
	Difficulty *int      `json:"difficulty,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Content    string `json:"content"`
	Order      int    `json:"order"`
	IsCorrect  bool   `json:"is_correct"`
	Status     Status `json:"status"`
}

type File struct {
	ID           int64  `json:"id"`
	GroupID      int64  `json:"group_id"`
	MediaType    string `json:"media_type"`
	URL          string `json:"url"`
	DisplayOrder int    `json:"display_order"`
	Status       Status `json:"status"`
}

type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Specs are the nested bulk-write payload. A nil ID means "create"; a non-nil
// ID must reference a row already owned by the aggregate being updated.

type GroupSpec struct {
	TestSetID   *int64 `json:"test_set_id"`
	Part        string `json:"part"`
	Difficulty  *int   `json:"difficulty"`
	Transcript  string `json:"transcript"`
	Passage     string `json:"passage"`
	Explanation string `json:"explanation"`
	Notes       string `json:"notes"`
	GroupOrder  int    `json:"group_order"`
}

type QuestionSpec struct {
	ID         *int64       `json:"id"`
	Number     int          `json:"number"`
	Text       string       `json:"text"`
	Difficulty *int         `json:"difficulty"`
	Answers    []AnswerSpec `json:"answers"`
	TagIDs     []int64      `json:"tag_ids"`
}

type AnswerSpec struct {
	ID        *int64 `json:"id"`
	Content   string `json:"content"`
	Order     int    `json:"order"`
	IsCorrect bool   `json:"is_correct"`
}

type FileSpec struct {
	ID           *int64 `json:"id"`
	MediaType    string `json:"media_type"`
	DisplayOrder int    `json:"display_order"`
}

// Binary is one uploaded file body, consumed positionally by null-id file specs.
type Binary struct {
	Name   string
	Reader io.Reader
}

// GroupTree is the active view of one aggregate.
type GroupTree struct {
	Group     Group          `json:"group"`
	Questions []QuestionTree `json:"questions"`
	Files     []File         `json:"files"`
}

type QuestionTree struct {
	Question Question `json:"question"`
	Answers  []Answer `json:"answers"`
	TagIDs   []int64  `json:"tag_ids"`
}
