// Package extract turns free text into a candidate transaction record via a
// Gemini completion, obeying a fixed JSON contract.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini extracts structured transactions from text. The client is injected
// at construction; there is no package-level client state.
type Gemini struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

// New creates a Gemini extractor. An empty API key is reported immediately
// as a typed unconfigured-credential failure rather than surfacing later as
// an opaque HTTP 401.
func New(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ExtractionError{Stage: domain.StageLLM, Reason: domain.ReasonUnconfigured}
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("extract: create genai client: %w", err)
	}

	return &Gemini{client: client, model: model, now: time.Now}, nil
}

// Extract issues exactly one completion request for the given text and
// returns the candidate the model produced. It does not retry; the mapped
// failure reason tells the caller whether a retry of the whole request is
// sensible.
func (g *Gemini) Extract(ctx context.Context, text string) (*domain.Candidate, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &domain.ExtractionError{Stage: domain.StageLLM, Reason: domain.ReasonEmptyInput}
	}
	if g.client == nil {
		return nil, &domain.ExtractionError{Stage: domain.StageLLM, Reason: domain.ReasonUnconfigured}
	}

	today := g.now()
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(trimmed, today)},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, mapGenAIError(err)
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, &domain.ExtractionError{Stage: domain.StageLLM, Reason: domain.ReasonEmptyOutput}
	}

	return ParseCandidate(raw, today)
}

// mapGenAIError translates Gemini API failures into the closed reason set so
// the caller can tell a bad key (terminal) from a rate limit or 5xx
// (retryable).
func mapGenAIError(err error) error {
	reason := domain.ReasonGeneric

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			reason = domain.ReasonUnauthorized
		case apiErr.Code == http.StatusTooManyRequests:
			reason = domain.ReasonRateLimited
		case apiErr.Code == http.StatusServiceUnavailable:
			reason = domain.ReasonUnavailable
		case apiErr.Code >= 500:
			reason = domain.ReasonServerError
		}
	}

	return &domain.ExtractionError{Stage: domain.StageLLM, Reason: reason, Err: err}
}
