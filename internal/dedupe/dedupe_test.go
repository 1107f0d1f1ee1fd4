package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

type stubLookup struct {
	rows []*domain.Transaction
	err  error
}

func (s *stubLookup) FindByMerchantAndDate(ctx context.Context, merchant, date string) ([]*domain.Transaction, error) {
	return s.rows, s.err
}

func tx(userID string, merchant, date string, amount float64) *domain.Transaction {
	return &domain.Transaction{
		UserID:        userID,
		TransactionID: "tx-existing",
		Merchant:      merchant,
		Date:          date,
		Amount:        amount,
	}
}

func candidate(merchant, date string, amount float64) *domain.Validated {
	return &domain.Validated{Merchant: merchant, Date: date, Amount: amount}
}

func TestFindDuplicates_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name      string
		existing  float64
		candidate float64
		wantMatch bool
	}{
		{name: "exact match", existing: 100, candidate: 100, wantMatch: true},
		{name: "4.99 percent above", existing: 104.99, candidate: 100, wantMatch: true},
		{name: "5.01 percent above", existing: 105.01, candidate: 100, wantMatch: false},
		{name: "exactly 5 percent", existing: 105, candidate: 100, wantMatch: true},
		{name: "4.99 percent below", existing: 95.01, candidate: 100, wantMatch: true},
		{name: "5.01 percent below", existing: 94.99, candidate: 100, wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &stubLookup{rows: []*domain.Transaction{
				tx("user-1", "Starbucks", "2026-08-29", tt.existing),
			}}
			r := NewResolver(lookup)

			matches, err := r.FindDuplicates(context.Background(), "user-1", candidate("Starbucks", "2026-08-29", tt.candidate))
			if err != nil {
				t.Fatalf("FindDuplicates() error = %v", err)
			}
			if (len(matches) > 0) != tt.wantMatch {
				t.Errorf("matches = %d, wantMatch %v", len(matches), tt.wantMatch)
			}
		})
	}
}

func TestFindDuplicates_FiltersOtherUsers(t *testing.T) {
	// The broad fallback scan can hand back cross-user rows; they must
	// never count as duplicates.
	lookup := &stubLookup{rows: []*domain.Transaction{
		tx("user-2", "Starbucks", "2026-08-29", 100),
		tx("user-1", "Starbucks", "2026-08-29", 100),
	}}
	r := NewResolver(lookup)

	matches, err := r.FindDuplicates(context.Background(), "user-1", candidate("Starbucks", "2026-08-29", 100))
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].UserID != "user-1" {
		t.Errorf("matched user = %q, want user-1", matches[0].UserID)
	}
}

func TestFindDuplicates_RequiresExactMerchantAndDate(t *testing.T) {
	lookup := &stubLookup{rows: []*domain.Transaction{
		tx("user-1", "Starbucks Downtown", "2026-08-29", 100),
		tx("user-1", "Starbucks", "2026-08-28", 100),
	}}
	r := NewResolver(lookup)

	matches, err := r.FindDuplicates(context.Background(), "user-1", candidate("Starbucks", "2026-08-29", 100))
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %d, want 0", len(matches))
	}
}

func TestFindDuplicates_PropagatesLookupError(t *testing.T) {
	wantErr := &domain.StorageError{Op: "query", Err: errors.New("backend down")}
	r := NewResolver(&stubLookup{err: wantErr})

	_, err := r.FindDuplicates(context.Background(), "user-1", candidate("Starbucks", "2026-08-29", 100))
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error type = %T, want StorageError", err)
	}
}
