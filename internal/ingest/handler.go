package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"testbank/internal/app/apiresp"
	"testbank/internal/processing"
	"testbank/internal/storage"
)

const maxUploadBytes = 128 << 20

type uploadRecords interface {
	CreateRecord(ctx context.Context, in processing.CreateRecordInput) (*processing.Record, error)
	Fail(ctx context.Context, id int64, errMsg string) error
}

type extractionRequester interface {
	RequestExtraction(ctx context.Context, in ExtractionRequest) error
}

// UploadHandler accepts an exam document, stores it, opens a processing
// record and kicks off the extraction worker.
type UploadHandler struct {
	store     storage.BlobStore
	records   uploadRecords
	extractor extractionRequester
}

func NewUploadHandler(store storage.BlobStore, records uploadRecords, extractor extractionRequester) *UploadHandler {
	return &UploadHandler{store: store, records: records, extractor: extractor}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	var testSetID *int64
	if raw := strings.TrimSpace(r.FormValue("test_set_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid test_set_id")
			return
		}
		testSetID = &id
	}
	partType := strings.TrimSpace(r.FormValue("part_type"))

	locator, err := h.store.Save(r.Context(), fh.Filename, f)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "store upload")
		return
	}

	uploadID, err := newUploadID()
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	rec, err := h.records.CreateRecord(r.Context(), processing.CreateRecordInput{
		UploadID:  uploadID,
		TestSetID: testSetID,
		PartType:  partType,
	})
	if err != nil {
		if errors.Is(err, processing.ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "create processing record")
		return
	}

	if err := h.extractor.RequestExtraction(r.Context(), ExtractionRequest{
		UploadID:    uploadID,
		FileLocator: locator,
		TestSetID:   testSetID,
		PartType:    partType,
	}); err != nil {
		_ = h.records.Fail(r.Context(), rec.ID, fmt.Sprintf("request extraction: %v", err))
		apiresp.WriteError(w, r, http.StatusBadGateway, "extraction service unavailable")
		return
	}

	apiresp.WriteOK(w, r, http.StatusAccepted, rec)
}

func newUploadID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
