package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ledger/internal/api/middleware"
	"github.com/dvloznov/expense-ledger/internal/jobs"
	"github.com/dvloznov/expense-ledger/internal/ocr"
)

// Uploader stages receipt images in object storage for async processing.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// ReceiptsHandler serves asynchronous receipt submission: the image goes to
// object storage, a job goes on the queue, and the caller polls the job.
type ReceiptsHandler struct {
	uploader  Uploader
	publisher jobs.Publisher
	store     jobs.Store
	log       zerolog.Logger
}

// NewReceiptsHandler creates the receipts handler.
func NewReceiptsHandler(uploader Uploader, publisher jobs.Publisher, store jobs.Store, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{uploader: uploader, publisher: publisher, store: store, log: log}
}

// Submit handles POST /api/receipts. The body is multipart form data with a
// "receipt" file and a "user_id" field.
func (h *ReceiptsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(ocr.MaxImageBytes + 1); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ocr.MaxImageBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read receipt file")
		return
	}
	if len(data) > ocr.MaxImageBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Receipt image exceeds 10 MB")
		return
	}

	uri, err := h.uploader.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.log.Error().Err(err).Msg("receipt upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store receipt")
		return
	}

	job := &jobs.IngestReceiptJob{UserID: userID, ImageURI: uri}
	if err := h.publisher.PublishIngestReceipt(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("uri", uri).Msg("failed to enqueue receipt job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to queue receipt")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":    job.JobID,
		"image_uri": uri,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *ReceiptsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *ReceiptsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{
		UserID: r.URL.Query().Get("user_id"),
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}
