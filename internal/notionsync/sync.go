// Package notionsync mirrors confirmed ledger transactions into a Notion
// database so they can be reviewed outside the API.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

const (
	// BatchSize defines the number of transactions to process in a single batch.
	BatchSize = 100

	// maxSyncTransactions caps how many transactions a single run pulls from
	// the store.
	maxSyncTransactions = 1000
)

// Syncer pushes a user's transactions into a Notion database. Pages are keyed
// by the Transaction ID title property; transactions that already have a page
// are skipped, and pages whose transaction no longer exists are archived.
type Syncer struct {
	source     TransactionSource
	notion     NotionService
	databaseID string
	dryRun     bool
	log        zerolog.Logger
}

// NewSyncer creates a Syncer. With dryRun set, Sync logs what it would do
// without touching Notion.
func NewSyncer(source TransactionSource, notion NotionService, databaseID string, dryRun bool, log zerolog.Logger) *Syncer {
	return &Syncer{
		source:     source,
		notion:     notion,
		databaseID: databaseID,
		dryRun:     dryRun,
		log:        log,
	}
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Created int
	Skipped int
	Deleted int
}

// Sync mirrors the user's transactions into Notion.
func (s *Syncer) Sync(ctx context.Context, userID string) (*SyncResult, error) {
	s.log.Info().
		Str("userId", userID).
		Bool("dry_run", s.dryRun).
		Msg("Starting transaction sync to Notion")

	transactions, err := s.source.ListByUser(ctx, userID, maxSyncTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	validTransactionIDs := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		validTransactionIDs[tx.TransactionID] = true
	}

	pages, err := s.queryAllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	s.log.Info().
		Int("transaction_count", len(transactions)).
		Int("notion_page_count", len(pages)).
		Msg("Retrieved sync inputs")

	existingTransactionIDs := make(map[string]bool, len(pages))
	for _, page := range pages {
		if txID := extractTransactionID(page); txID != "" {
			existingTransactionIDs[txID] = true
		}
	}

	result := &SyncResult{}

	// Archive pages whose transaction is gone from the ledger, plus pages
	// without a usable Transaction ID.
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && validTransactionIDs[txID] {
			continue
		}

		if s.dryRun {
			s.log.Info().
				Str("transactionId", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			result.Deleted++
			continue
		}

		if err := s.notion.DeletePage(ctx, string(page.ID)); err != nil {
			s.log.Warn().
				Err(err).
				Str("transactionId", txID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		result.Deleted++
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		for _, tx := range transactions[i:end] {
			if existingTransactionIDs[tx.TransactionID] {
				result.Skipped++
				continue
			}

			if s.dryRun {
				s.log.Info().
					Str("transactionId", tx.TransactionID).
					Msg("[DRY RUN] Would create Notion page")
				result.Created++
				continue
			}

			if _, err := s.notion.CreatePage(ctx, s.databaseID, TransactionToNotionProperties(tx)); err != nil {
				return result, fmt.Errorf("failed to create Notion page for %s: %w", tx.TransactionID, err)
			}
			result.Created++
		}
	}

	s.log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("deleted", result.Deleted).
		Msg("Transaction sync to Notion complete")

	return result, nil
}

// queryAllPages pages through the Notion database until exhausted.
func (s *Syncer) queryAllPages(ctx context.Context) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
