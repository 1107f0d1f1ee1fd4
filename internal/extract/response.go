package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// requiredKeys are the fields the model must emit. A response missing any of
// them fails with a SchemaError naming every absent key.
var requiredKeys = []string{"amount", "date", "merchant", "category", "type"}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// repairLayouts are tried when the model's date is not already YYYY-MM-DD.
var repairLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseCandidate turns a raw model response into a Candidate. It strips
// markdown fencing defensively, rejects invalid JSON with a typed parse
// failure, enforces the required-keys contract, and applies the documented
// post-processing (string amount coercion, date repair with a fallback to
// today, currency and description defaults).
func ParseCandidate(raw string, today time.Time) (*domain.Candidate, error) {
	clean := cleanModelJSON(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, &domain.ExtractionError{
			Stage:  domain.StageLLM,
			Reason: domain.ReasonParse,
			Err:    fmt.Errorf("unmarshal model response: %w", err),
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if v, ok := obj[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	c := &domain.Candidate{
		Amount:      obj["amount"],
		Date:        stringValue(obj["date"]),
		Merchant:    stringValue(obj["merchant"]),
		Category:    stringValue(obj["category"]),
		Type:        stringValue(obj["type"]),
		Currency:    stringValue(obj["currency"]),
		Description: stringValue(obj["description"]),
	}

	// Coerce a string amount to a number; if that fails, leave the raw
	// value for the validator to reject with a field-level failure.
	if s, ok := c.Amount.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			c.Amount = f
		}
	}

	c.Date = repairDate(c.Date, today)

	if strings.TrimSpace(c.Currency) == "" {
		c.Currency = "USD"
	}
	c.Description = strings.TrimSpace(c.Description)

	return c, nil
}

// repairDate keeps a YYYY-MM-DD value as-is, attempts a best-effort reparse
// of anything else, and falls back to today's local date when unparseable.
func repairDate(s string, today time.Time) string {
	trimmed := strings.TrimSpace(s)
	if isoDateRe.MatchString(trimmed) {
		return trimmed
	}
	for _, layout := range repairLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.Format(domain.DateFormat)
		}
	}
	return today.Format(domain.DateFormat)
}

// cleanModelJSON strips Markdown fences and any prose around the JSON object
// if the model ignored instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
