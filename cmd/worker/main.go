package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/apiv1"

	"github.com/dvloznov/expense-ledger/internal/config"
	"github.com/dvloznov/expense-ledger/internal/extract"
	"github.com/dvloznov/expense-ledger/internal/gcs"
	"github.com/dvloznov/expense-ledger/internal/jobs"
	"github.com/dvloznov/expense-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/expense-ledger/internal/logger"
	"github.com/dvloznov/expense-ledger/internal/ocr"
	"github.com/dvloznov/expense-ledger/internal/pipeline"
	storebq "github.com/dvloznov/expense-ledger/internal/store/bigquery"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storageClient.Close()
	objects := gcs.NewObjectStore(storageClient, cfg.Bucket)

	visionClient, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Vision client")
	}
	defer visionClient.Close()

	llm, err := extract.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini extractor")
	}

	pipe := pipeline.New(ocr.NewExtractor(visionClient), llm, store, objects, log)

	// In production this queue would be replaced with Cloud Tasks or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job *jobs.IngestReceiptJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("userId", job.UserID).
			Str("image_uri", job.ImageURI).
			Msg("Processing receipt job")

		result, err := pipe.IngestReceipt(ctx, job.UserID, job.ImageURI)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Msg("Receipt ingestion failed")
			return err
		}

		log.Info().
			Str("job_id", job.JobID).
			Bool("duplicate", result.IsDuplicate).
			Msg("Receipt ingestion completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
