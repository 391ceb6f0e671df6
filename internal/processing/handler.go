package processing

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"testbank/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc recordService
}

type recordService interface {
	GetRecord(ctx context.Context, id int64) (*Record, error)
	ListRecords(ctx context.Context, f ListRecordsFilter) ([]Record, error)
	MarkResolved(ctx context.Context, id int64) (*Record, error)
	Cancel(ctx context.Context, id int64) (*Record, error)
	SoftDelete(ctx context.Context, id int64) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.GetRecord(r.Context(), id)
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, rec)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListRecordsFilter{
		PartType: strings.TrimSpace(q.Get("part_type")),
		Status:   RecordStatus(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("test_set_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid test_set_id")
			return
		}
		f.TestSetID = &id
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}

	items, err := h.svc.ListRecords(r.Context(), f)
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) MarkResolved(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.MarkResolved(r.Context(), id)
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, rec)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeRecordError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(r.Context(), id); err != nil {
		writeRecordError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]int64{"id": id})
}

func recordIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}

func writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotResolvable):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRecordNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
