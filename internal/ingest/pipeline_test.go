package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"testbank/internal/processing"
	"testbank/internal/question"
)

type fakeGroupStore struct {
	nextGroupID int64
	groups      []question.IngestedGroupInput
	questions   map[int64][]question.QuestionSpec

	failGroupOrder  int
	failQuestionNum int
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{questions: make(map[int64][]question.QuestionSpec)}
}

func (f *fakeGroupStore) CreateIngestedGroup(ctx context.Context, in question.IngestedGroupInput) (int64, error) {
	if f.failGroupOrder != 0 && in.GroupOrder == f.failGroupOrder {
		return 0, errors.New("insert group: connection reset")
	}
	f.nextGroupID++
	f.groups = append(f.groups, in)
	return f.nextGroupID, nil
}

func (f *fakeGroupStore) AddQuestion(ctx context.Context, groupID int64, q question.QuestionSpec) (int64, error) {
	if f.failQuestionNum != 0 && q.Number == f.failQuestionNum {
		return 0, fmt.Errorf("%w: question %d must have exactly one correct answer, got 2", question.ErrInvalidInput, q.Number)
	}
	f.questions[groupID] = append(f.questions[groupID], q)
	return int64(len(f.questions[groupID])), nil
}

type fakeRecordStore struct {
	processingID int64
	failedID     int64
	failedMsg    string
	completedID  int64
	completed    processing.CompleteInput
}

func (f *fakeRecordStore) MarkProcessing(ctx context.Context, id int64) error {
	f.processingID = id
	return nil
}

func (f *fakeRecordStore) Fail(ctx context.Context, id int64, errMsg string) error {
	f.failedID = id
	f.failedMsg = errMsg
	return nil
}

func (f *fakeRecordStore) Complete(ctx context.Context, id int64, in processing.CompleteInput) error {
	f.completedID = id
	f.completed = in
	return nil
}

type fakeTestSets struct {
	name string
	err  error
}

func (f *fakeTestSets) TestSetName(ctx context.Context, id int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func successMessage() CallbackMessage {
	return CallbackMessage{
		UploadID: "u-1",
		Status:   "success",
		Data: &CallbackData{
			TestSetID: 3,
			Groups: []CallbackGroup{
				{
					GroupOrder: 1,
					Part:       "listening",
					Questions: []CallbackQuestion{
						{Number: 1, Text: "Q1", Answers: twoAnswers()},
						{Number: 2, Text: "Q2", Answers: twoAnswers()},
					},
				},
				{
					GroupOrder: 2,
					Part:       "reading",
					Questions: []CallbackQuestion{
						{Number: 1, Text: "Q1", Answers: twoAnswers()},
						{Number: 2, Text: "Q2", Answers: twoAnswers()},
						{Number: 3, Text: "Q3", Answers: twoAnswers()},
					},
				},
			},
		},
	}
}

func twoAnswers() []CallbackAnswer {
	return []CallbackAnswer{
		{Content: "A", Order: 1, IsCorrect: true},
		{Content: "B", Order: 2},
	}
}

func TestIngest_AllQuestionsPersisted(t *testing.T) {
	groups := newFakeGroupStore()
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{name: "TOEIC Mock 4"}, nil)

	if err := p.Ingest(context.Background(), 10, successMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records.processingID != 10 {
		t.Fatalf("record %d was not marked processing", 10)
	}
	if records.completedID != 10 {
		t.Fatal("record was not completed")
	}
	if got := records.completed; got.TotalFound != 5 || got.Inserted != 5 || got.Failed != 0 {
		t.Fatalf("counters = %+v", got)
	}
	if records.completed.ErrorMessage != "" || records.completed.IssueDetails != nil {
		t.Fatalf("clean run should clear error fields, got %+v", records.completed)
	}

	if len(groups.groups) != 2 {
		t.Fatalf("created %d groups, want 2", len(groups.groups))
	}
	// Provenance notes use the running question counter across units.
	if got := groups.groups[0].Notes; got != "Source: Q1-2 of exam TOEIC Mock 4" {
		t.Fatalf("group 1 note = %q", got)
	}
	if got := groups.groups[1].Notes; got != "Source: Q3-5 of exam TOEIC Mock 4" {
		t.Fatalf("group 2 note = %q", got)
	}
}

func TestIngest_PartialSuccessKeepsSiblings(t *testing.T) {
	groups := newFakeGroupStore()
	groups.failQuestionNum = 3
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{name: "TOEIC Mock 4"}, nil)

	if err := p.Ingest(context.Background(), 10, successMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := records.completed
	if got.TotalFound != 5 || got.Inserted != 4 || got.Failed != 1 {
		t.Fatalf("counters = %+v", got)
	}
	issues, ok := got.IssueDetails["group_2"]
	if !ok || len(issues) != 1 {
		t.Fatalf("issue report = %+v", got.IssueDetails)
	}
	if issues[0].QuestionNumber != 3 || issues[0].ErrorType != errTypeAnswer {
		t.Fatalf("issue = %+v", issues[0])
	}
	if !strings.Contains(got.ErrorMessage, "4 of 5") {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}

	// Group 2's first two questions stay persisted.
	if len(groups.questions[2]) != 2 {
		t.Fatalf("group 2 kept %d questions, want 2", len(groups.questions[2]))
	}
	if records.failedID != 0 {
		t.Fatal("partial success must not fail the record")
	}
}

func TestIngest_GroupFailureIsolated(t *testing.T) {
	groups := newFakeGroupStore()
	groups.failGroupOrder = 1
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{name: "TOEIC Mock 4"}, nil)

	if err := p.Ingest(context.Background(), 10, successMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := records.completed
	if got.TotalFound != 5 || got.Inserted != 3 || got.Failed != 2 {
		t.Fatalf("counters = %+v", got)
	}
	issues, ok := got.IssueDetails["group_1"]
	if !ok || len(issues) != 1 || issues[0].ErrorType != errTypeGroup {
		t.Fatalf("issue report = %+v", got.IssueDetails)
	}
	// The second unit still went through in full.
	if len(groups.groups) != 1 || groups.groups[0].GroupOrder != 2 {
		t.Fatalf("groups = %+v", groups.groups)
	}
}

func TestIngest_DuplicateGroupOrderKeepsSeparateIssueBuckets(t *testing.T) {
	groups := newFakeGroupStore()
	groups.failGroupOrder = 7
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{name: "TOEIC Mock 4"}, nil)

	msg := CallbackMessage{
		UploadID: "u-1",
		Status:   "success",
		Data: &CallbackData{
			TestSetID: 3,
			Groups: []CallbackGroup{
				{
					GroupOrder: 7,
					Part:       "listening",
					Questions:  []CallbackQuestion{{Number: 1, Text: "Q1", Answers: twoAnswers()}},
				},
				{
					GroupOrder: 7,
					Part:       "reading",
					Questions:  []CallbackQuestion{{Number: 2, Text: "Q2", Answers: twoAnswers()}},
				},
			},
		},
	}
	if err := p.Ingest(context.Background(), 10, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := records.completed
	if got.Failed != 2 {
		t.Fatalf("counters = %+v", got)
	}
	first, ok := got.IssueDetails["group_1"]
	if !ok || len(first) != 1 || first[0].ErrorType != errTypeGroup {
		t.Fatalf("issue report = %+v", got.IssueDetails)
	}
	second, ok := got.IssueDetails["group_2"]
	if !ok || len(second) != 1 || second[0].ErrorType != errTypeGroup {
		t.Fatalf("issue report = %+v", got.IssueDetails)
	}
}

func TestIngest_TopLevelFailureZeroesCounters(t *testing.T) {
	groups := newFakeGroupStore()
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{name: "TOEIC Mock 4"}, nil)

	msg := CallbackMessage{UploadID: "u-1", Status: "failed", Error: "document unreadable"}
	if err := p.Ingest(context.Background(), 10, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records.failedID != 10 {
		t.Fatal("record was not failed")
	}
	if !strings.Contains(records.failedMsg, "document unreadable") {
		t.Fatalf("failure message = %q", records.failedMsg)
	}
	if records.completedID != 0 {
		t.Fatal("failed payload must not complete the record")
	}
	if len(groups.groups) != 0 {
		t.Fatalf("no groups should be created, got %d", len(groups.groups))
	}
}

func TestIngest_MissingTestSetFailsRecord(t *testing.T) {
	groups := newFakeGroupStore()
	records := &fakeRecordStore{}
	p := NewPipeline(groups, records, &fakeTestSets{err: errors.New("test set not found")}, nil)

	if err := p.Ingest(context.Background(), 10, successMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records.failedID != 10 {
		t.Fatal("record was not failed")
	}
	if len(groups.groups) != 0 {
		t.Fatal("no groups should be created when the test set is missing")
	}
}

func TestIngest_MalformedPayloadFailsRecord(t *testing.T) {
	records := &fakeRecordStore{}
	p := NewPipeline(newFakeGroupStore(), records, &fakeTestSets{name: "x"}, nil)

	msg := CallbackMessage{UploadID: "u-1", Status: "success"}
	if err := p.Ingest(context.Background(), 10, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records.failedID != 10 {
		t.Fatal("record was not failed")
	}
}
