package question

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"testbank/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

const maxBulkRequestBytes = 64 << 20

type Handler struct {
	svc bulkService
}

type bulkService interface {
	CreateGroup(ctx context.Context, in CreateGroupInput) (int64, error)
	UpdateGroup(ctx context.Context, groupID int64, in UpdateGroupInput) (int64, error)
	GetGroup(ctx context.Context, groupID int64) (*GroupTree, error)
	ImportGroupsExcel(ctx context.Context, r io.Reader, testSetID *int64) (*GroupImportReport, error)
	ExportGroupsExcel(ctx context.Context, testSetID int64) ([]byte, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type bulkPayload struct {
	Group     GroupSpec      `json:"group"`
	Questions []QuestionSpec `json:"questions"`
	Files     []FileSpec     `json:"files"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	in, closers, ok := h.decodeBulkRequest(w, r)
	defer closeAll(closers)
	if !ok {
		return
	}

	id, err := h.svc.CreateGroup(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: map[string]int64{"group_id": id}})
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || groupID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid group id"})
		return
	}

	in, closers, ok := h.decodeBulkRequest(w, r)
	defer closeAll(closers)
	if !ok {
		return
	}

	id, err := h.svc.UpdateGroup(r.Context(), groupID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]int64{"group_id": id}})
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || groupID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid group id"})
		return
	}

	tree, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: tree})
}

func (h *Handler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBulkRequestBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file is required"})
		return
	}
	defer f.Close()

	var testSetID *int64
	if raw := strings.TrimSpace(r.FormValue("test_set_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid test_set_id"})
			return
		}
		testSetID = &id
	}

	report, err := h.svc.ImportGroupsExcel(r.Context(), f, testSetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: report})
}

func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	testSetID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("test_set_id")), 10, 64)
	if err != nil || testSetID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "test_set_id is required and must be positive"})
		return
	}

	b, err := h.svc.ExportGroupsExcel(r.Context(), testSetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="question-groups.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// decodeBulkRequest accepts either a bare JSON body or a multipart form with a
// "payload" JSON field plus ordered "binaries" file parts.
func (h *Handler) decodeBulkRequest(w http.ResponseWriter, r *http.Request) (CreateGroupInput, []multipart.File, bool) {
	var in CreateGroupInput

	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/") {
		var payload bulkPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBulkRequestBytes)).Decode(&payload); err != nil {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
			return in, nil, false
		}
		in.Group = payload.Group
		in.Questions = payload.Questions
		in.Files = payload.Files
		return in, nil, true
	}

	if err := r.ParseMultipartForm(maxBulkRequestBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return in, nil, false
	}

	var payload bulkPayload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid payload json"})
		return in, nil, false
	}
	in.Group = payload.Group
	in.Questions = payload.Questions
	in.Files = payload.Files

	closers := make([]multipart.File, 0)
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["binaries"] {
			f, err := fh.Open()
			if err != nil {
				closeAll(closers)
				writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "unreadable uploaded file"})
				return in, nil, false
			}
			closers = append(closers, f)
			in.Binaries = append(in.Binaries, Binary{Name: fh.Filename, Reader: f})
		}
	}
	return in, closers, true
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrAnswerNotFound),
		errors.Is(err, ErrFileNotFound),
		errors.Is(err, ErrTagNotFound),
		errors.Is(err, ErrTestSetNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
