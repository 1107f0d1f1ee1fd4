// Package handlers contains the HTTP boundary. It is glue: it decodes
// requests, calls the pipeline or store, and maps failure kinds to status
// codes. All transaction logic lives below it.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ledger/internal/api/middleware"
	"github.com/dvloznov/expense-ledger/internal/domain"
	"github.com/dvloznov/expense-ledger/internal/ocr"
	"github.com/dvloznov/expense-ledger/internal/pipeline"
	storebq "github.com/dvloznov/expense-ledger/internal/store/bigquery"
)

// Ingestor is the slice of the pipeline the HTTP layer drives.
type Ingestor interface {
	IngestText(ctx context.Context, userID, message string) (*pipeline.Result, error)
	IngestReceiptImage(ctx context.Context, userID string, image []byte) (*pipeline.Result, error)
	IngestReceipt(ctx context.Context, userID, imageURI string) (*pipeline.Result, error)
}

// TransactionStore is the slice of the store the HTTP layer drives directly
// (reads and administrative mutations; creation always goes through the
// pipeline).
type TransactionStore interface {
	Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
	Update(ctx context.Context, userID, transactionID string, upd storebq.TransactionUpdate) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, transactionID string) error
}

// TransactionsHandler serves the /api/transactions endpoints.
type TransactionsHandler struct {
	ingestor Ingestor
	store    TransactionStore
	log      zerolog.Logger
}

// NewTransactionsHandler creates the transactions handler.
func NewTransactionsHandler(ingestor Ingestor, store TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ingestor: ingestor, store: store, log: log}
}

// IngestText handles POST /api/transactions/text.
func (h *TransactionsHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.ingestor.IngestText(r.Context(), req.UserID, req.Message)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// IngestReceipt handles POST /api/transactions/receipt. The body is either
// JSON naming a previously uploaded object, or the raw image bytes with the
// user in the query string.
func (h *TransactionsHandler) IngestReceipt(w http.ResponseWriter, r *http.Request) {
	if isJSONRequest(r) {
		var req struct {
			UserID   string `json:"user_id"`
			ImageURI string `json:"image_uri"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ImageURI == "" {
			middleware.WriteError(w, http.StatusBadRequest, "image_uri is required")
			return
		}

		res, err := h.ingestor.IngestReceipt(r.Context(), req.UserID, req.ImageURI)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, res)
		return
	}

	userID := r.URL.Query().Get("user_id")

	// Read one byte past the cap so the adapter's size check fires rather
	// than silently truncating.
	image, err := io.ReadAll(io.LimitReader(r.Body, ocr.MaxImageBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read image body")
		return
	}

	res, err := h.ingestor.IngestReceiptImage(r.Context(), userID, image)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}

	txs, err := h.store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tx, err := h.store.Get(r.Context(), userID, transactionID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PATCH /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var req struct {
		Amount      *float64 `json:"amount"`
		Date        *string  `json:"date"`
		Merchant    *string  `json:"merchant"`
		Category    *string  `json:"category"`
		Type        *string  `json:"type"`
		Description *string  `json:"description"`
		Status      *string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := storebq.TransactionUpdate{
		Amount:      req.Amount,
		Date:        req.Date,
		Merchant:    req.Merchant,
		Category:    req.Category,
		Type:        req.Type,
		Description: req.Description,
		Status:      req.Status,
	}

	tx, err := h.store.Update(r.Context(), userID, transactionID, upd)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.store.Delete(r.Context(), userID, transactionID); err != nil {
		h.writeFailure(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// isJSONRequest tolerates media-type parameters like "; charset=utf-8".
func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// writeFailure maps the closed set of failure kinds to transport status
// codes without leaking backend details to the client.
func (h *TransactionsHandler) writeFailure(w http.ResponseWriter, err error) {
	var fieldErr *domain.InvalidFieldError
	var extErr *domain.ExtractionError
	var schemaErr *domain.SchemaError
	var storageErr *domain.StorageError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.As(err, &fieldErr):
		middleware.WriteError(w, http.StatusBadRequest, fieldErr.Error())
	case errors.As(err, &schemaErr):
		middleware.WriteError(w, http.StatusBadGateway, schemaErr.Error())
	case errors.As(err, &extErr):
		if extErr.Reason.Retryable() {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Extraction temporarily unavailable, please retry")
		} else {
			middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not extract a transaction from the input")
		}
	case errors.As(err, &storageErr):
		h.log.Error().Err(err).Msg("storage failure")
		middleware.WriteError(w, http.StatusInternalServerError, "Storage failure")
	default:
		h.log.Error().Err(err).Msg("unhandled failure")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
