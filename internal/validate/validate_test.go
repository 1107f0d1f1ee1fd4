package validate

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    float64
		wantErr bool
	}{
		{name: "float", input: 12.5, want: 12.5},
		{name: "numeric string", input: "99.99", want: 99.99},
		{name: "numeric string with spaces", input: " 42 ", want: 42},
		{name: "integer", input: 7, want: 7},
		{name: "zero", input: 0.0, wantErr: true},
		{name: "negative", input: -5.0, wantErr: true},
		{name: "above one billion", input: 1_000_000_000.01, wantErr: true},
		{name: "exactly one billion", input: 1_000_000_000.0, want: 1_000_000_000},
		{name: "non-numeric string", input: "twelve", wantErr: true},
		{name: "NaN string", input: "NaN", wantErr: true},
		{name: "NaN float", input: math.NaN(), wantErr: true},
		{name: "Inf string", input: "Inf", wantErr: true},
		{name: "negative Inf float", input: math.Inf(-1), wantErr: true},
		{name: "nil", input: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Amount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Amount(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var fieldErr *domain.InvalidFieldError
				if !errors.As(err, &fieldErr) {
					t.Fatalf("Amount(%v) error type = %T, want InvalidFieldError", tt.input, err)
				}
				if fieldErr.Field != "amount" {
					t.Errorf("Amount(%v) error field = %q, want amount", tt.input, fieldErr.Field)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Amount(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "iso date", input: "2026-08-29", want: "2026-08-29"},
		{name: "slash date", input: "2026/08/29", want: "2026-08-29"},
		{name: "us date", input: "08/29/2026", want: "2026-08-29"},
		{name: "long form", input: "August 29, 2026", want: "2026-08-29"},
		{name: "rfc3339 keeps its own calendar date", input: "2026-08-29T23:30:00Z", want: "2026-08-29"},
		{name: "365 days ahead allowed", input: "2027-08-30", want: "2027-08-30"},
		{name: "366 days ahead rejected", input: "2027-08-31", wantErr: true},
		{name: "far past allowed", input: "1999-01-01", want: "1999-01-01"},
		{name: "garbage", input: "not a date", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Date(tt.input, testNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Date(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Date(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestType(t *testing.T) {
	tests := []struct {
		input   string
		want    domain.TxType
		wantErr bool
	}{
		{input: "income", want: domain.TypeIncome},
		{input: "EXPENSE", want: domain.TypeExpense},
		{input: " Expense ", want: domain.TypeExpense},
		{input: "transfer", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Type(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Type(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				// The failure message must name the received value.
				if !strings.Contains(err.Error(), tt.input) {
					t.Errorf("Type(%q) error %q does not name the received value", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Type(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: "USD"},
		{input: "gbp", want: "GBP"},
		{input: " eur ", want: "EUR"},
		{input: "US", wantErr: true},
		{input: "DOLL", wantErr: true},
		{input: "U5D", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Currency(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Currency(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Currency(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRecord_FieldOrder(t *testing.T) {
	// Both amount and type are invalid; amount is checked first, so the
	// failure must name amount.
	c := &domain.Candidate{
		Amount:   "not a number",
		Date:     "2026-08-29",
		Type:     "transfer",
		Merchant: "Starbucks",
		Category: "Food & Drink",
	}

	_, err := Record(c, testNow)
	var fieldErr *domain.InvalidFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("Record() error type = %T, want InvalidFieldError", err)
	}
	if fieldErr.Field != "amount" {
		t.Errorf("Record() failed on field %q, want amount (fixed order)", fieldErr.Field)
	}
}

func TestRecord_Valid(t *testing.T) {
	c := &domain.Candidate{
		Amount:      "12.50",
		Date:        "2026-08-29",
		Type:        "Expense",
		Merchant:    "  Starbucks  ",
		Category:    "Food & Drink",
		Currency:    "usd",
		Description: " morning coffee ",
	}

	v, err := Record(c, testNow)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if v.Amount != 12.50 {
		t.Errorf("Amount = %v, want 12.50", v.Amount)
	}
	if v.Merchant != "Starbucks" {
		t.Errorf("Merchant = %q, want trimmed Starbucks", v.Merchant)
	}
	if v.Type != domain.TypeExpense {
		t.Errorf("Type = %q, want expense", v.Type)
	}
	if v.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", v.Currency)
	}
	if v.Description != "morning coffee" {
		t.Errorf("Description = %q, want trimmed", v.Description)
	}
}

func TestRecord_LengthLimits(t *testing.T) {
	base := func() *domain.Candidate {
		return &domain.Candidate{
			Amount:   10.0,
			Date:     "2026-08-29",
			Type:     "expense",
			Merchant: "Shop",
			Category: "Other",
		}
	}

	tests := []struct {
		name      string
		mutate    func(*domain.Candidate)
		wantField string
	}{
		{
			name:      "merchant too long",
			mutate:    func(c *domain.Candidate) { c.Merchant = strings.Repeat("m", 201) },
			wantField: "merchant",
		},
		{
			name:      "category too long",
			mutate:    func(c *domain.Candidate) { c.Category = strings.Repeat("c", 101) },
			wantField: "category",
		},
		{
			name:      "description too long",
			mutate:    func(c *domain.Candidate) { c.Description = strings.Repeat("d", 501) },
			wantField: "description",
		},
		{
			name:      "merchant whitespace only",
			mutate:    func(c *domain.Candidate) { c.Merchant = "   " },
			wantField: "merchant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			_, err := Record(c, testNow)
			var fieldErr *domain.InvalidFieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("Record() error type = %T, want InvalidFieldError", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("Record() failed on field %q, want %q", fieldErr.Field, tt.wantField)
			}
		})
	}
}

func TestUserID(t *testing.T) {
	if _, err := UserID(""); err == nil {
		t.Error("UserID(\"\") should fail")
	}
	if _, err := UserID(strings.Repeat("u", 101)); err == nil {
		t.Error("UserID over 100 chars should fail")
	}
	got, err := UserID(" user-1 ")
	if err != nil {
		t.Fatalf("UserID error = %v", err)
	}
	if got != "user-1" {
		t.Errorf("UserID = %q, want trimmed user-1", got)
	}
}
