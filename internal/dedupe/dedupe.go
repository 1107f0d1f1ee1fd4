// Package dedupe decides whether a candidate transaction duplicates a record
// the user already has.
package dedupe

import (
	"context"
	"math"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// DefaultTolerance is the relative amount band within which two
// same-merchant, same-date records are treated as the same transaction.
const DefaultTolerance = 0.05

// Lookup is the one store operation the resolver needs.
type Lookup interface {
	FindByMerchantAndDate(ctx context.Context, merchant, date string) ([]*domain.Transaction, error)
}

// Resolver finds near-identical existing records for a validated candidate.
type Resolver struct {
	lookup    Lookup
	tolerance float64
}

// NewResolver creates a resolver with the default 5% amount tolerance.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, tolerance: DefaultTolerance}
}

// FindDuplicates returns every existing record of the same user whose
// merchant and date match the candidate exactly and whose amount is within
// tolerance. The lookup may return cross-user rows (the broad fallback scan
// does); ownership is always filtered here. Order is whatever the store
// returned.
func (r *Resolver) FindDuplicates(ctx context.Context, userID string, v *domain.Validated) ([]*domain.Transaction, error) {
	existing, err := r.lookup.FindByMerchantAndDate(ctx, v.Merchant, v.Date)
	if err != nil {
		return nil, err
	}

	var matches []*domain.Transaction
	for _, tx := range existing {
		if tx.UserID != userID {
			continue
		}
		if tx.Merchant != v.Merchant || tx.Date != v.Date {
			continue
		}
		if withinTolerance(tx.Amount, v.Amount, r.tolerance) {
			matches = append(matches, tx)
		}
	}

	return matches, nil
}

// withinTolerance reports whether |existing - candidate| / candidate is at
// most tolerance. The candidate amount is the denominator; it is always
// positive by the time validation has passed.
func withinTolerance(existing, candidate, tolerance float64) bool {
	if candidate == 0 {
		return existing == 0
	}
	return math.Abs(existing-candidate)/candidate <= tolerance
}
