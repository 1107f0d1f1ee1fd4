package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// TransactionRow is the BigQuery shape of a confirmed transaction.
// (user_id, transaction_id) is the unique storage key; the table is
// clustered by (merchant, transaction_date) to serve duplicate lookups.
type TransactionRow struct {
	UserID        string `bigquery:"user_id"`
	TransactionID string `bigquery:"transaction_id"`

	IngestTS time.Time `bigquery:"ingest_ts"`

	Amount          *big.Rat   `bigquery:"amount"` // NUMERIC
	TransactionDate civil.Date `bigquery:"transaction_date"`
	Merchant        string     `bigquery:"merchant"`
	Category        string     `bigquery:"category"`
	TxType          string     `bigquery:"tx_type"`
	Currency        string     `bigquery:"currency"`
	Description     string     `bigquery:"description"`

	Source  string `bigquery:"source"`
	RawText string `bigquery:"raw_text"`
	Status  string `bigquery:"status"`

	CreatedTS time.Time `bigquery:"created_ts"`
	UpdatedTS time.Time `bigquery:"updated_ts"`
}

func rowFromTransaction(tx *domain.Transaction) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, err
	}

	amount := new(big.Rat)
	amount.SetFloat64(tx.Amount)

	return &TransactionRow{
		UserID:          tx.UserID,
		TransactionID:   tx.TransactionID,
		IngestTS:        tx.Timestamp,
		Amount:          amount,
		TransactionDate: date,
		Merchant:        tx.Merchant,
		Category:        tx.Category,
		TxType:          string(tx.Type),
		Currency:        tx.Currency,
		Description:     tx.Description,
		Source:          string(tx.Source),
		RawText:         tx.RawText,
		Status:          tx.Status,
		CreatedTS:       tx.CreatedAt,
		UpdatedTS:       tx.UpdatedAt,
	}, nil
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}

	return &domain.Transaction{
		UserID:        r.UserID,
		TransactionID: r.TransactionID,
		Timestamp:     r.IngestTS,
		Amount:        amount,
		Date:          r.TransactionDate.String(),
		Merchant:      r.Merchant,
		Category:      r.Category,
		Type:          domain.TxType(r.TxType),
		Currency:      r.Currency,
		Description:   r.Description,
		Source:        domain.Source(r.Source),
		RawText:       r.RawText,
		Status:        r.Status,
		CreatedAt:     r.CreatedTS,
		UpdatedAt:     r.UpdatedTS,
	}
}
