package processing

import "time"

// RecordStatus is the processing record lifecycle. Completed, failed and
// canceled are terminal; deleted is a soft-delete reachable from non-terminal
// states only.
type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusProcessing RecordStatus = "processing"
	StatusCompleted  RecordStatus = "completed"
	StatusCanceled   RecordStatus = "canceled"
	StatusFailed     RecordStatus = "failed"
	StatusDeleted    RecordStatus = "deleted"
)

var allowedTransitions = map[RecordStatus][]RecordStatus{
	StatusPending:    {StatusProcessing, StatusCanceled, StatusDeleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCanceled, StatusDeleted},
	StatusCompleted:  {},
	StatusCanceled:   {},
	StatusFailed:     {},
	StatusDeleted:    {},
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to RecordStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QuestionIssue is one recoverable per-question failure captured by the
// ingestion pipeline.
type QuestionIssue struct {
	QuestionNumber int    `json:"question_number"`
	ErrorType      string `json:"error_type"`
	Message        string `json:"message"`
}

// IssueReport maps a group label to the issues recorded under it. It stays
// typed in memory and is serialized to JSON only at the row boundary.
type IssueReport map[string][]QuestionIssue

type Record struct {
	ID               int64        `json:"id"`
	UploadID         string       `json:"upload_id"`
	TestSetID        *int64       `json:"test_set_id,omitempty"`
	PartType         string       `json:"part_type,omitempty"`
	TotalFound       int          `json:"total_found"`
	Inserted         int          `json:"inserted"`
	Duplicated       int          `json:"duplicated"`
	Failed           int          `json:"failed"`
	ExistingCount    int          `json:"existing_count"`
	ManuallyResolved bool         `json:"manually_resolved"`
	ErrorMessage     *string      `json:"error_message,omitempty"`
	IssueDetails     IssueReport  `json:"issue_details,omitempty"`
	Status           RecordStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
