// Package pipeline composes extraction, validation, duplicate resolution and
// persistence into the transaction ingestion flow.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ledger/internal/dedupe"
	"github.com/dvloznov/expense-ledger/internal/domain"
	"github.com/dvloznov/expense-ledger/internal/validate"
)

// Stage names logged as a request moves through the state machine.
const (
	stageReceived           = "received"
	stageExtracting         = "extracting"
	stageStructuring        = "structuring"
	stageValidating         = "validating"
	stageCheckingDuplicates = "checking_duplicates"
	stagePersisting         = "persisting"
	stageDuplicateFound     = "duplicate_found"
	stageDone               = "done"
)

// Pipeline orchestrates one ingestion request at a time. All collaborators
// are injected; the pipeline holds no clients of its own. The only shared
// mutable state is the timestamp guard.
type Pipeline struct {
	ocr      TextExtractor
	llm      StructuredExtractor
	store    Store
	objects  ObjectStore
	resolver *dedupe.Resolver
	log      zerolog.Logger

	now func() time.Time

	mu     sync.Mutex
	lastTS time.Time
}

// New wires a pipeline. objects may be nil when receipts never arrive via a
// storage URI (e.g. the CLI feeding bytes directly).
func New(ocr TextExtractor, llm StructuredExtractor, store Store, objects ObjectStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		ocr:      ocr,
		llm:      llm,
		store:    store,
		objects:  objects,
		resolver: dedupe.NewResolver(store),
		log:      log,
		now:      time.Now,
	}
}

// IngestText processes a free-text transaction report.
func (p *Pipeline) IngestText(ctx context.Context, userID, message string) (*Result, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return nil, err
	}

	normalized := collapseWhitespace(message)
	p.stage(userID, stageReceived).Str("source", string(domain.SourceManual)).Msg("ingesting text report")

	return p.ingestFromText(ctx, userID, normalized, domain.SourceManual)
}

// IngestReceiptImage processes receipt image bytes handed over directly.
func (p *Pipeline) IngestReceiptImage(ctx context.Context, userID string, image []byte) (*Result, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return nil, err
	}

	p.stage(userID, stageReceived).Str("source", string(domain.SourceOCR)).Msg("ingesting receipt image")

	return p.ingestFromImage(ctx, userID, image)
}

// IngestReceipt processes a receipt image previously uploaded to object
// storage. The temporary object is deleted exactly once on every exit —
// success, duplicate, or failure — and deletion errors are logged, never
// escalated.
func (p *Pipeline) IngestReceipt(ctx context.Context, userID, imageURI string) (*Result, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return nil, err
	}
	if p.objects == nil {
		return nil, fmt.Errorf("pipeline: no object store configured for receipt URI %s", imageURI)
	}

	defer func() {
		if err := p.objects.Delete(ctx, imageURI); err != nil {
			p.log.Warn().Err(err).Str("uri", imageURI).Msg("temp image cleanup failed")
		}
	}()

	p.stage(userID, stageReceived).Str("source", string(domain.SourceOCR)).Str("uri", imageURI).Msg("ingesting stored receipt")

	image, err := p.objects.Fetch(ctx, imageURI)
	if err != nil {
		return nil, err
	}

	return p.ingestFromImage(ctx, userID, image)
}

func (p *Pipeline) ingestFromImage(ctx context.Context, userID string, image []byte) (*Result, error) {
	p.stage(userID, stageExtracting).Int("bytes", len(image)).Msg("recognizing receipt text")

	text, err := p.ocr.Extract(ctx, image)
	if err != nil {
		return nil, err
	}

	return p.ingestFromText(ctx, userID, text, domain.SourceOCR)
}

func (p *Pipeline) ingestFromText(ctx context.Context, userID, text string, source domain.Source) (*Result, error) {
	p.stage(userID, stageStructuring).Msg("extracting structured record")

	candidate, err := p.llm.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	p.stage(userID, stageValidating).Msg("validating candidate")

	validated, err := validate.Record(candidate, p.now())
	if err != nil {
		return nil, err
	}
	validated.Source = source
	validated.RawText = text

	p.stage(userID, stageCheckingDuplicates).
		Str("merchant", validated.Merchant).
		Str("date", validated.Date).
		Msg("checking for near-identical records")

	// Note: nothing locks the check-then-write sequence. Two
	// near-simultaneous submissions of the same transaction can both pass
	// this check and both be persisted.
	duplicates, err := p.resolver.FindDuplicates(ctx, userID, validated)
	if err != nil {
		return nil, err
	}
	if len(duplicates) > 0 {
		first := duplicates[0]
		p.stage(userID, stageDuplicateFound).Str("duplicate_id", first.TransactionID).Msg("duplicate detected, nothing written")
		return &Result{
			Message:     duplicateMessage(first),
			IsDuplicate: true,
			Duplicate:   first,
		}, nil
	}

	tx := domain.NewTransaction(userID, validated, p.nextTimestamp())

	p.stage(userID, stagePersisting).Str("transaction_id", tx.TransactionID).Msg("persisting record")

	if err := p.store.Put(ctx, tx); err != nil {
		return nil, err
	}

	p.stage(userID, stageDone).Str("transaction_id", tx.TransactionID).Msg("ingestion complete")

	return &Result{
		Transaction: tx,
		Message:     confirmationMessage(tx),
	}, nil
}

// nextTimestamp returns a creation instant that never decreases within this
// process, even if the wall clock steps backwards.
func (p *Pipeline) nextTimestamp() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.now()
	if t.Before(p.lastTS) {
		t = p.lastTS
	}
	p.lastTS = t
	return t
}

func (p *Pipeline) stage(userID, stage string) *zerolog.Event {
	return p.log.Info().Str("user_id", userID).Str("stage", stage)
}
