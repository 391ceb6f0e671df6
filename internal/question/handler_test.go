package question

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockBulkService struct {
	createGroupFn       func(ctx context.Context, in CreateGroupInput) (int64, error)
	updateGroupFn       func(ctx context.Context, groupID int64, in UpdateGroupInput) (int64, error)
	getGroupFn          func(ctx context.Context, groupID int64) (*GroupTree, error)
	importGroupsExcelFn func(ctx context.Context, r io.Reader, testSetID *int64) (*GroupImportReport, error)
	exportGroupsExcelFn func(ctx context.Context, testSetID int64) ([]byte, error)
}

func (m *mockBulkService) CreateGroup(ctx context.Context, in CreateGroupInput) (int64, error) {
	if m.createGroupFn == nil {
		return 0, errors.New("not implemented")
	}
	return m.createGroupFn(ctx, in)
}

func (m *mockBulkService) UpdateGroup(ctx context.Context, groupID int64, in UpdateGroupInput) (int64, error) {
	if m.updateGroupFn == nil {
		return 0, errors.New("not implemented")
	}
	return m.updateGroupFn(ctx, groupID, in)
}

func (m *mockBulkService) GetGroup(ctx context.Context, groupID int64) (*GroupTree, error) {
	if m.getGroupFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getGroupFn(ctx, groupID)
}

func (m *mockBulkService) ImportGroupsExcel(ctx context.Context, r io.Reader, testSetID *int64) (*GroupImportReport, error) {
	if m.importGroupsExcelFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.importGroupsExcelFn(ctx, r, testSetID)
}

func (m *mockBulkService) ExportGroupsExcel(ctx context.Context, testSetID int64) ([]byte, error) {
	if m.exportGroupsExcelFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.exportGroupsExcelFn(ctx, testSetID)
}

func newTestRouter(svc bulkService) http.Handler {
	h := &Handler{svc: svc}
	r := chi.NewRouter()
	r.Post("/groups", h.CreateGroup)
	r.Put("/groups/{id}", h.UpdateGroup)
	r.Get("/groups/{id}", h.GetGroup)
	return r
}

func TestCreateGroup_JSONBody(t *testing.T) {
	var got CreateGroupInput
	svc := &mockBulkService{
		createGroupFn: func(ctx context.Context, in CreateGroupInput) (int64, error) {
			got = in
			return 42, nil
		},
	}
	router := newTestRouter(svc)

	body := `{
		"group": {"part": "reading", "group_order": 1},
		"questions": [{"number": 1, "text": "Pick one", "answers": [
			{"content": "A", "order": 1, "is_correct": true},
			{"content": "B", "order": 2, "is_correct": false}
		]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if got.Group.Part != "reading" || len(got.Questions) != 1 || len(got.Questions[0].Answers) != 2 {
		t.Fatalf("decoded input = %+v", got)
	}

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			GroupID int64 `json:"group_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Data.GroupID != 42 {
		t.Fatalf("response = %s", rec.Body.String())
	}
}

func TestCreateGroup_MultipartBinaries(t *testing.T) {
	var got CreateGroupInput
	svc := &mockBulkService{
		createGroupFn: func(ctx context.Context, in CreateGroupInput) (int64, error) {
			// Drain binaries before the handler closes them.
			for i := range in.Binaries {
				b, err := io.ReadAll(in.Binaries[i].Reader)
				if err != nil {
					return 0, err
				}
				in.Binaries[i].Reader = bytes.NewReader(b)
			}
			got = in
			return 7, nil
		},
	}
	router := newTestRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	payload := `{"group":{"part":"listening","group_order":2},"questions":[],"files":[{"media_type":"audio","display_order":1}]}`
	if err := mw.WriteField("payload", payload); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("binaries", "clip.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("audio-bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/groups", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(got.Binaries) != 1 || got.Binaries[0].Name != "clip.mp3" {
		t.Fatalf("binaries = %+v", got.Binaries)
	}
	if len(got.Files) != 1 || got.Files[0].MediaType != "audio" {
		t.Fatalf("files = %+v", got.Files)
	}
}

func TestUpdateGroup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid input", err: ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "group missing", err: ErrGroupNotFound, wantStatus: http.StatusNotFound},
		{name: "question missing", err: ErrQuestionNotFound, wantStatus: http.StatusNotFound},
		{name: "tag missing", err: ErrTagNotFound, wantStatus: http.StatusNotFound},
		{name: "unexpected", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockBulkService{
				updateGroupFn: func(ctx context.Context, groupID int64, in UpdateGroupInput) (int64, error) {
					return 0, tc.err
				},
			}
			router := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodPut, "/groups/5", bytes.NewBufferString(`{"group":{},"questions":[]}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestGetGroup_InvalidID(t *testing.T) {
	router := newTestRouter(&mockBulkService{})

	req := httptest.NewRequest(http.MethodGet, "/groups/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
