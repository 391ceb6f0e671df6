package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockSummaryService struct {
	summaryFn func(ctx context.Context, testSetID int64) (*TestSetSummary, error)
}

func (m *mockSummaryService) SummaryByTestSet(ctx context.Context, testSetID int64) (*TestSetSummary, error) {
	if m.summaryFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.summaryFn(ctx, testSetID)
}

func newSummaryRouter(svc summaryService) http.Handler {
	h := &Handler{svc: svc}
	r := chi.NewRouter()
	r.Get("/test-sets/{id}/summary", h.Summary)
	return r
}

func TestSummary_OK(t *testing.T) {
	svc := &mockSummaryService{
		summaryFn: func(ctx context.Context, testSetID int64) (*TestSetSummary, error) {
			return &TestSetSummary{
				TestSetID:       testSetID,
				TestSetName:     "TOEIC Mock 4",
				ActiveGroups:    6,
				ManualGroups:    2,
				IngestedGroups:  4,
				ActiveQuestions: 30,
				IngestionRuns:   3,
				UnresolvedRuns:  1,
			}, nil
		},
	}
	router := newSummaryRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/test-sets/7/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK   bool           `json:"ok"`
		Data TestSetSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Data.TestSetID != 7 || resp.Data.TestSetName != "TOEIC Mock 4" {
		t.Fatalf("response = %s", rec.Body.String())
	}
	if resp.Data.ManualGroups+resp.Data.IngestedGroups != resp.Data.ActiveGroups {
		t.Fatalf("group counts = %+v", resp.Data)
	}
}

func TestSummary_NotFound(t *testing.T) {
	svc := &mockSummaryService{
		summaryFn: func(ctx context.Context, testSetID int64) (*TestSetSummary, error) {
			return nil, ErrTestSetNotFound
		},
	}
	router := newSummaryRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/test-sets/99/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSummary_InvalidID(t *testing.T) {
	router := newSummaryRouter(&mockSummaryService{})

	req := httptest.NewRequest(http.MethodGet, "/test-sets/abc/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
