package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ExtractionStage identifies which adapter produced an ExtractionError.
type ExtractionStage string

const (
	StageOCR ExtractionStage = "ocr"
	StageLLM ExtractionStage = "llm"
)

// ExtractionReason categorizes why an extraction adapter failed. Callers use
// Retryable to decide whether resubmitting the whole request makes sense;
// the adapters themselves never retry.
type ExtractionReason string

const (
	ReasonEmptyInput     ExtractionReason = "empty_input"
	ReasonEmptyOutput    ExtractionReason = "empty_output"
	ReasonPayloadTooBig  ExtractionReason = "payload_too_large"
	ReasonUnconfigured   ExtractionReason = "credential_unconfigured"
	ReasonUnauthorized   ExtractionReason = "unauthorized"
	ReasonMalformedInput ExtractionReason = "malformed_input"
	ReasonThrottled      ExtractionReason = "throttled"
	ReasonRateLimited    ExtractionReason = "rate_limited"
	ReasonServerError    ExtractionReason = "server_error"
	ReasonUnavailable    ExtractionReason = "unavailable"
	ReasonParse          ExtractionReason = "parse"
	ReasonGeneric        ExtractionReason = "generic"
)

// Retryable reports whether the condition behind this reason is transient.
func (r ExtractionReason) Retryable() bool {
	switch r {
	case ReasonThrottled, ReasonRateLimited, ReasonServerError, ReasonUnavailable:
		return true
	}
	return false
}

// InvalidFieldError reports caller input that failed a field check. It is
// terminal; resubmitting the same input will fail the same way.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// NewInvalidField builds an InvalidFieldError with a formatted reason.
func NewInvalidField(field, format string, args ...any) *InvalidFieldError {
	return &InvalidFieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ExtractionError reports that the OCR or LLM adapter could not produce
// usable output. Err carries the underlying cause when there is one.
type ExtractionError struct {
	Stage  ExtractionStage
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction failed (%s): %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s extraction failed (%s)", e.Stage, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SchemaError reports that the structured extractor's response was valid
// JSON but missed required keys. Missing always names every absent key.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("extractor response missing required fields: %s", strings.Join(e.Missing, ", "))
}

// StorageError wraps a backend failure for diagnostics without leaking the
// cause to end users.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrNotFound is returned by store point lookups when no record exists for
// the requested key.
var ErrNotFound = errors.New("transaction not found")
