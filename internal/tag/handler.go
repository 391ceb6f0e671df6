package tag

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
	svc tagService
}

type tagService interface {
	CreateTag(ctx context.Context, name string) (*Tag, error)
	GetTag(ctx context.Context, id int64) (*Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.CreateTag(r.Context(), req.Name)
	if err != nil {
		writeTagError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := tagIDParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetTag(r.Context(), id)
	if err != nil {
		writeTagError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeTagError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := tagIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTag(r.Context(), id); err != nil {
		writeTagError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]int64{"id": id})
}

func tagIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid tag id")
		return 0, false
	}
	return id, true
}

func writeTagError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTagExists):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTagNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
