// Package validate enforces the structural and semantic contract for a
// transaction record. It is a pure leaf: no clients, no I/O, no clock other
// than the instant the caller passes in.
package validate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// maxFutureDays is how far ahead of validation time a transaction date may
// fall before it is rejected.
const maxFutureDays = 365

// dateLayouts are tried in order when the input is not already YYYY-MM-DD.
// Bare dates are interpreted in UTC and reformatted from the UTC instant, so
// a given input string always normalizes to the same calendar date
// regardless of the host time zone.
var dateLayouts = []string{
	domain.DateFormat,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Record runs every field check in a fixed order (amount, date, type,
// merchant, category, currency, description) and returns on the first
// failure. A nil error guarantees the returned Validated obeys every
// invariant the store relies on.
func Record(c *domain.Candidate, now time.Time) (*domain.Validated, error) {
	amount, err := Amount(c.Amount)
	if err != nil {
		return nil, err
	}
	date, err := Date(c.Date, now)
	if err != nil {
		return nil, err
	}
	txType, err := Type(c.Type)
	if err != nil {
		return nil, err
	}
	merchant, err := requiredString("merchant", c.Merchant, domain.MaxMerchantLength)
	if err != nil {
		return nil, err
	}
	category, err := requiredString("category", c.Category, domain.MaxCategoryLength)
	if err != nil {
		return nil, err
	}
	currency, err := Currency(c.Currency)
	if err != nil {
		return nil, err
	}
	description, err := Description(c.Description)
	if err != nil {
		return nil, err
	}

	return &domain.Validated{
		Amount:      amount,
		Date:        date,
		Merchant:    merchant,
		Category:    category,
		Type:        txType,
		Currency:    currency,
		Description: description,
	}, nil
}

// Amount accepts a float64, an integer, or a numeric string and returns the
// coerced value. Rejects non-numeric input, non-positive values, and values
// above one billion.
func Amount(v any) (float64, error) {
	var amount float64
	switch val := v.(type) {
	case float64:
		amount = val
	case int:
		amount = float64(val)
	case int64:
		amount = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, domain.NewInvalidField("amount", "not a number: %q", val)
		}
		amount = parsed
	default:
		return 0, domain.NewInvalidField("amount", "unsupported type %T", v)
	}

	// ParseFloat accepts "NaN" and "Inf", and neither clears the range
	// checks below.
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, domain.NewInvalidField("amount", "not a finite number: %v", amount)
	}
	if amount <= 0 {
		return 0, domain.NewInvalidField("amount", "must be positive, got %v", amount)
	}
	if amount > domain.MaxAmount {
		return 0, domain.NewInvalidField("amount", "exceeds maximum of %d", domain.MaxAmount)
	}
	return amount, nil
}

// Date parses the input against the known layouts and normalizes it to
// YYYY-MM-DD. Dates more than 365 days after now are rejected; there is no
// lower bound beyond being parseable.
func Date(s string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", domain.NewInvalidField("date", "is required")
	}

	var parsed time.Time
	var ok bool
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return "", domain.NewInvalidField("date", "unparseable date %q", s)
	}

	if parsed.After(now.UTC().AddDate(0, 0, maxFutureDays)) {
		return "", domain.NewInvalidField("date", "%q is more than %d days in the future", s, maxFutureDays)
	}

	return parsed.UTC().Format(domain.DateFormat), nil
}

// Type matches case-insensitively against {income, expense} and normalizes
// to lowercase. The failure message names the received value.
func Type(s string) (domain.TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(domain.TypeIncome):
		return domain.TypeIncome, nil
	case string(domain.TypeExpense):
		return domain.TypeExpense, nil
	}
	return "", domain.NewInvalidField("type", "must be income or expense, got %q", s)
}

// Currency defaults to USD when absent; otherwise the trimmed value must
// uppercase to exactly 3 alphabetic characters.
func Currency(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "USD", nil
	}
	upper := strings.ToUpper(trimmed)
	if len(upper) != 3 {
		return "", domain.NewInvalidField("currency", "must be a 3-letter code, got %q", s)
	}
	for _, r := range upper {
		if r < 'A' || r > 'Z' {
			return "", domain.NewInvalidField("currency", "must be alphabetic, got %q", s)
		}
	}
	return upper, nil
}

// Description is optional and capped at 500 characters after trimming.
func Description(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > domain.MaxDescriptionLength {
		return "", domain.NewInvalidField("description", "exceeds %d characters", domain.MaxDescriptionLength)
	}
	return trimmed, nil
}

// UserID checks the owner key the pipeline receives from the boundary layer.
func UserID(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", domain.NewInvalidField("userId", "is required")
	}
	if len(trimmed) > domain.MaxUserIDLength {
		return "", domain.NewInvalidField("userId", "exceeds %d characters", domain.MaxUserIDLength)
	}
	return trimmed, nil
}

func requiredString(field, s string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", domain.NewInvalidField(field, "is required")
	}
	if len(trimmed) > maxLen {
		return "", domain.NewInvalidField(field, "exceeds %d characters", maxLen)
	}
	return trimmed, nil
}
