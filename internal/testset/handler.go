package testset

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"testbank/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc testSetService
}

type testSetService interface {
	CreateTestSet(ctx context.Context, in CreateTestSetInput) (*TestSet, error)
	UpdateTestSet(ctx context.Context, id int64, in UpdateTestSetInput) (*TestSet, error)
	GetTestSet(ctx context.Context, id int64) (*TestSet, error)
	ListTestSets(ctx context.Context) ([]TestSet, error)
	DeleteTestSet(ctx context.Context, id int64) error
}

type testSetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req testSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.CreateTestSet(r.Context(), CreateTestSetInput{Name: req.Name, Description: req.Description})
	if err != nil {
		writeTestSetError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := testSetIDParam(w, r)
	if !ok {
		return
	}
	var req testSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.UpdateTestSet(r.Context(), id, UpdateTestSetInput{Name: req.Name, Description: req.Description})
	if err != nil {
		writeTestSetError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := testSetIDParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetTestSet(r.Context(), id)
	if err != nil {
		writeTestSetError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTestSets(r.Context())
	if err != nil {
		writeTestSetError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := testSetIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTestSet(r.Context(), id); err != nil {
		writeTestSetError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]int64{"id": id})
}

func testSetIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid test set id")
		return 0, false
	}
	return id, true
}

func writeTestSetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTestSetNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
