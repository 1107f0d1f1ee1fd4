package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source marks where a transaction's raw text came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceOCR    Source = "ocr"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// StatusConfirmed is the only status the ingestion pipeline ever writes.
// Updates may later change it through the store's allow-list.
const StatusConfirmed = "confirmed"

// Field limits enforced by the validator.
const (
	MaxAmount            = 1_000_000_000
	MaxUserIDLength      = 100
	MaxMerchantLength    = 200
	MaxCategoryLength    = 100
	MaxDescriptionLength = 500
)

// DateFormat is the canonical calendar-date layout for all stored dates.
const DateFormat = "2006-01-02"

// Candidate is an unvalidated transaction as recovered from user text or a
// model response. Amount is `any` because the extractor may hand back a
// number or a numeric string; nothing in a Candidate is trusted until the
// validator has approved it.
type Candidate struct {
	Amount      any
	Date        string
	Merchant    string
	Category    string
	Type        string
	Currency    string
	Description string
}

// Validated holds the business fields of a transaction after every field
// check has passed. It has no identity yet; the pipeline assigns one when it
// persists.
type Validated struct {
	Amount      float64
	Date        string // YYYY-MM-DD
	Merchant    string
	Category    string
	Type        TxType
	Currency    string
	Description string
	Source      Source
	RawText     string
}

// Transaction is the canonical persisted record. (UserID, TransactionID) is
// the unique storage key; TransactionID is immutable once assigned.
type Transaction struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`

	Amount      float64 `json:"amount"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category"`
	Type        TxType  `json:"type"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`

	Source  Source `json:"source"`
	RawText string `json:"raw_text"`
	Status  string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTransaction stamps a validated record with identity and timestamps.
// The caller supplies now; the pipeline guarantees it is non-decreasing
// across calls within a process.
func NewTransaction(userID string, v *Validated, now time.Time) *Transaction {
	return &Transaction{
		UserID:        userID,
		TransactionID: fmt.Sprintf("tx-%s", uuid.NewString()),
		Timestamp:     now,
		Amount:        v.Amount,
		Date:          v.Date,
		Merchant:      v.Merchant,
		Category:      v.Category,
		Type:          v.Type,
		Currency:      v.Currency,
		Description:   v.Description,
		Source:        v.Source,
		RawText:       v.RawText,
		Status:        StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
