package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// collapseWhitespace trims and squashes every run of whitespace to a single
// space. The result becomes the record's rawText for the manual path.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func confirmationMessage(tx *domain.Transaction) string {
	return fmt.Sprintf("Recorded %s of %.2f %s at %s on %s (%s).",
		tx.Type, tx.Amount, tx.Currency, tx.Merchant, tx.Date, tx.Category)
}

func duplicateMessage(existing *domain.Transaction) string {
	return fmt.Sprintf("This looks like a duplicate of %.2f %s at %s on %s (recorded as %s). No new record was created.",
		existing.Amount, existing.Currency, existing.Merchant, existing.Date, existing.TransactionID)
}
