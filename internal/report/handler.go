package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"testbank/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc summaryService
}

type summaryService interface {
	SummaryByTestSet(ctx context.Context, testSetID int64) (*TestSetSummary, error)
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid test set id")
		return
	}

	out, err := h.svc.SummaryByTestSet(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTestSetNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}
