package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/expense-ledger/internal/config"
	"github.com/dvloznov/expense-ledger/internal/logger"
	"github.com/dvloznov/expense-ledger/internal/notionsync"
	storebq "github.com/dvloznov/expense-ledger/internal/store/bigquery"
)

func main() {
	log := logger.New()

	userID := flag.String("user", "", "User ID whose transactions to sync (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (defaults to NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (defaults to NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *notionToken == "" {
		*notionToken = cfg.NotionToken
	}
	if *notionDBID == "" {
		*notionDBID = cfg.NotionDatabaseID
	}

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}

	// Timeout so the CLI doesn't hang on a stuck sync
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Info().
		Str("userId", *userID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	bqClient, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer bqClient.Close()

	store := storebq.NewStore(bqClient, storebq.Config{
		ProjectID:          cfg.ProjectID,
		DatasetID:          cfg.DatasetID,
		TableID:            cfg.TableID,
		MerchantDateLookup: cfg.MerchantDateLookup,
	}, log)

	notionClient := notionsync.NewNotionClient(*notionToken)
	syncer := notionsync.NewSyncer(store, notionClient, *notionDBID, *dryRun, log)

	result, err := syncer.Sync(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d skipped, %d archived.\n",
		result.Created, result.Skipped, result.Deleted)
}
