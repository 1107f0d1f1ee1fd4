package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/apiv1"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ledger/internal/config"
	"github.com/dvloznov/expense-ledger/internal/extract"
	"github.com/dvloznov/expense-ledger/internal/gcs"
	"github.com/dvloznov/expense-ledger/internal/logger"
	"github.com/dvloznov/expense-ledger/internal/ocr"
	"github.com/dvloznov/expense-ledger/internal/pipeline"
	storebq "github.com/dvloznov/expense-ledger/internal/store/bigquery"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "text":
		runText(log)
	case "receipt":
		runReceipt(log)
	case "list":
		runList(log)
	case "show":
		runShow(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expense Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  text      Ingest a free-text expense report")
	fmt.Println("  receipt   Ingest a receipt image (local file or gs:// URI)")
	fmt.Println("  list      List a user's recent transactions")
	fmt.Println("  show      Show one transaction by ID")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// deps bundles everything the subcommands wire up.
type deps struct {
	store   *storebq.Store
	pipe    *pipeline.Pipeline
	cleanup func()
}

func buildDeps(ctx context.Context, log zerolog.Logger) *deps {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}

	store := storebq.NewStore(bqClient, storebq.Config{
		ProjectID:          cfg.ProjectID,
		DatasetID:          cfg.DatasetID,
		TableID:            cfg.TableID,
		MerchantDateLookup: cfg.MerchantDateLookup,
	}, log)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	objects := gcs.NewObjectStore(storageClient, cfg.Bucket)

	visionClient, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Vision client")
	}

	llm, err := extract.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini extractor")
	}

	pipe := pipeline.New(ocr.NewExtractor(visionClient), llm, store, objects, log)

	return &deps{
		store: store,
		pipe:  pipe,
		cleanup: func() {
			visionClient.Close()
			storageClient.Close()
			bqClient.Close()
		},
	}
}

func runText(log zerolog.Logger) {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	user := fs.String("user", "", "User ID")
	message := fs.String("message", "", "Free-text expense report")
	fs.Parse(os.Args[2:])

	if *user == "" || *message == "" {
		log.Fatal().Msg("Usage: cli text -user ID -message TEXT")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d := buildDeps(ctx, log)
	defer d.cleanup()

	result, err := d.pipe.IngestText(ctx, *user, *message)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	printResult(result)
}

func runReceipt(log zerolog.Logger) {
	fs := flag.NewFlagSet("receipt", flag.ExitOnError)
	user := fs.String("user", "", "User ID")
	file := fs.String("file", "", "Path to a local receipt image")
	uri := fs.String("uri", "", "gs:// URI of an uploaded receipt image")
	fs.Parse(os.Args[2:])

	if *user == "" || (*file == "" && *uri == "") {
		log.Fatal().Msg("Usage: cli receipt -user ID (-file PATH | -uri gs://...)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	d := buildDeps(ctx, log)
	defer d.cleanup()

	var (
		result *pipeline.Result
		err    error
	)
	if *file != "" {
		var image []byte
		image, err = os.ReadFile(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("Failed to read receipt image")
		}
		result, err = d.pipe.IngestReceiptImage(ctx, *user, image)
	} else {
		result, err = d.pipe.IngestReceipt(ctx, *user, *uri)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	printResult(result)
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.String("user", "", "User ID")
	limit := fs.Int("limit", 20, "Maximum number of transactions")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Usage: cli list -user ID [-limit N]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d := buildDeps(ctx, log)
	defer d.cleanup()

	transactions, err := d.store.ListByUser(ctx, *user, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(transactions))
	for i, tx := range transactions {
		fmt.Printf("\n%d. %s\n", i+1, tx.Merchant)
		fmt.Printf("   ID:       %s\n", tx.TransactionID)
		fmt.Printf("   Date:     %s\n", tx.Date)
		fmt.Printf("   Amount:   %.2f %s\n", tx.Amount, tx.Currency)
		fmt.Printf("   Category: %s\n", tx.Category)
		if tx.Description != "" {
			fmt.Printf("   Note:     %s\n", tx.Description)
		}
	}
	fmt.Println()
}

func runShow(log zerolog.Logger) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	user := fs.String("user", "", "User ID")
	id := fs.String("id", "", "Transaction ID")
	fs.Parse(os.Args[2:])

	if *user == "" || *id == "" {
		log.Fatal().Msg("Usage: cli show -user ID -id TRANSACTION_ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d := buildDeps(ctx, log)
	defer d.cleanup()

	tx, err := d.store.Get(ctx, *user, *id)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch transaction")
	}

	fmt.Println("\n=== Transaction Details ===")
	fmt.Printf("ID:          %s\n", tx.TransactionID)
	fmt.Printf("User:        %s\n", tx.UserID)
	fmt.Printf("Date:        %s\n", tx.Date)
	fmt.Printf("Merchant:    %s\n", tx.Merchant)
	fmt.Printf("Amount:      %.2f %s\n", tx.Amount, tx.Currency)
	fmt.Printf("Category:    %s\n", tx.Category)
	fmt.Printf("Type:        %s\n", tx.Type)
	fmt.Printf("Source:      %s\n", tx.Source)
	fmt.Printf("Status:      %s\n", tx.Status)
	if tx.Description != "" {
		fmt.Printf("Description: %s\n", tx.Description)
	}
	if tx.RawText != "" {
		fmt.Printf("Raw text:    %s\n", tx.RawText)
	}
	fmt.Println()
}

func printResult(result *pipeline.Result) {
	if result.IsDuplicate {
		fmt.Println("\nDuplicate detected; nothing was saved.")
		fmt.Println(result.Message)
		if result.Duplicate != nil {
			fmt.Printf("Existing transaction: %s\n", result.Duplicate.TransactionID)
		}
		return
	}

	fmt.Println("\nTransaction saved.")
	fmt.Println(result.Message)
	if result.Transaction != nil {
		fmt.Printf("ID: %s\n", result.Transaction.TransactionID)
	}
}
