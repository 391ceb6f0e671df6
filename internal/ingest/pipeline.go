package ingest

import (
	"context"
	"fmt"
	"log"

	"testbank/internal/processing"
	"testbank/internal/question"
)

type groupStore interface {
	CreateIngestedGroup(ctx context.Context, in question.IngestedGroupInput) (int64, error)
	AddQuestion(ctx context.Context, groupID int64, q question.QuestionSpec) (int64, error)
}

type recordStore interface {
	MarkProcessing(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, errMsg string) error
	Complete(ctx context.Context, id int64, in processing.CompleteInput) error
}

type testSetNamer interface {
	TestSetName(ctx context.Context, id int64) (string, error)
}

// Notifier is told about runs that completed with failures so someone can
// triage the issue report.
type Notifier interface {
	NotifyIngestIssues(recordID int64, inserted, failed int)
}

// Pipeline turns one extraction callback into persisted question groups. A
// bad group or question is recorded and skipped; only payload-level problems
// fail the whole record.
type Pipeline struct {
	groups   groupStore
	records  recordStore
	testSets testSetNamer
	notifier Notifier
}

func NewPipeline(groups groupStore, records recordStore, testSets testSetNamer, notifier Notifier) *Pipeline {
	return &Pipeline{groups: groups, records: records, testSets: testSets, notifier: notifier}
}

// Ingest processes one callback for the given processing record. Catastrophic
// failures (top-level failed status, missing test set, malformed payload) flip
// the record to failed; per-question failures are absorbed into the issue
// report and the record still completes.
func (p *Pipeline) Ingest(ctx context.Context, recordID int64, msg CallbackMessage) error {
	if err := p.records.MarkProcessing(ctx, recordID); err != nil {
		return fmt.Errorf("mark record processing: %w", err)
	}

	if err := p.run(ctx, recordID, msg); err != nil {
		if failErr := p.records.Fail(ctx, recordID, err.Error()); failErr != nil {
			return fmt.Errorf("fail record after %q: %w", err.Error(), failErr)
		}
		log.Printf("ingest: record %d failed: %v", recordID, err)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, recordID int64, msg CallbackMessage) error {
	if msg.Status == callbackStatusFailed {
		reason := msg.Error
		if reason == "" {
			reason = msg.Reason
		}
		if reason == "" {
			reason = "extraction reported failure"
		}
		return fmt.Errorf("extraction failed: %s", reason)
	}
	if msg.Status != callbackStatusSuccess {
		return fmt.Errorf("unrecognized callback status %q", msg.Status)
	}
	if msg.Data == nil || msg.Data.TestSetID <= 0 {
		return fmt.Errorf("callback payload is missing test set data")
	}

	testName, err := p.testSets.TestSetName(ctx, msg.Data.TestSetID)
	if err != nil {
		return fmt.Errorf("resolve test set %d: %w", msg.Data.TestSetID, err)
	}

	var totalFound, inserted, failed int
	cumulative := 0
	issues := processing.IssueReport{}

	for i, g := range msg.Data.Groups {
		count := len(g.Questions)
		totalFound += count
		first := cumulative + 1
		last := cumulative + count
		cumulative += count
		// Keyed by position in the callback, not group_order, so units
		// sharing an order keep separate issue buckets.
		label := fmt.Sprintf("group_%d", i+1)

		groupID, err := p.groups.CreateIngestedGroup(ctx, question.IngestedGroupInput{
			TestSetID:          msg.Data.TestSetID,
			Part:               g.Part,
			Transcript:         g.AudioTranscript,
			GroupOrder:         g.GroupOrder,
			Notes:              fmt.Sprintf("Source: Q%d-%d of exam %s", first, last, testName),
			ProcessingRecordID: recordID,
		})
		if err != nil {
			// One bad group never aborts the batch.
			failed += count
			issues[label] = append(issues[label], processing.QuestionIssue{
				ErrorType: errTypeGroup,
				Message:   err.Error(),
			})
			continue
		}

		for _, q := range g.Questions {
			spec := question.QuestionSpec{Number: q.Number, Text: q.Text}
			for _, a := range q.Answers {
				spec.Answers = append(spec.Answers, question.AnswerSpec{
					Content:   a.Content,
					Order:     a.Order,
					IsCorrect: a.IsCorrect,
				})
			}
			if _, err := p.groups.AddQuestion(ctx, groupID, spec); err != nil {
				// Siblings already persisted stay persisted.
				failed++
				issues[label] = append(issues[label], processing.QuestionIssue{
					QuestionNumber: q.Number,
					ErrorType:      classifyError(err),
					Message:        err.Error(),
				})
				continue
			}
			inserted++
		}
	}

	out := processing.CompleteInput{
		TotalFound: totalFound,
		Inserted:   inserted,
		Failed:     failed,
	}
	if failed > 0 {
		out.ErrorMessage = fmt.Sprintf("inserted %d of %d questions, %d failed", inserted, totalFound, failed)
		out.IssueDetails = issues
	}
	if err := p.records.Complete(ctx, recordID, out); err != nil {
		return fmt.Errorf("complete record: %w", err)
	}

	if failed > 0 && p.notifier != nil {
		p.notifier.NotifyIngestIssues(recordID, inserted, failed)
	}
	return nil
}
