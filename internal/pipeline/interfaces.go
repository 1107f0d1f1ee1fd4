package pipeline

import (
	"context"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// TextExtractor turns an image payload into a flat text block.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// StructuredExtractor turns free text into a candidate transaction record.
type StructuredExtractor interface {
	Extract(ctx context.Context, text string) (*domain.Candidate, error)
}

// Store is the slice of the transaction store the pipeline drives. The
// duplicate resolver shares the same FindByMerchantAndDate lookup.
type Store interface {
	Put(ctx context.Context, tx *domain.Transaction) error
	FindByMerchantAndDate(ctx context.Context, merchant, date string) ([]*domain.Transaction, error)
}

// ObjectStore is the temporary holding area for receipt images.
type ObjectStore interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Delete(ctx context.Context, uri string) error
}

// Result is what the caller gets back from an ingestion request.
type Result struct {
	// Transaction is the newly created record, nil when IsDuplicate.
	Transaction *domain.Transaction `json:"transaction"`

	// Message is human-readable confirmation or duplicate-warning text.
	Message string `json:"message"`

	IsDuplicate bool `json:"is_duplicate"`

	// Duplicate is the first matching existing record when IsDuplicate.
	Duplicate *domain.Transaction `json:"duplicate_transaction,omitempty"`
}
