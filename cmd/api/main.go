package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/apiv1"

	"github.com/dvloznov/expense-ledger/internal/api/handlers"
	"github.com/dvloznov/expense-ledger/internal/api/middleware"
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

	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - receipt uploads will be disabled")
	}

	ctx := context.Background()

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
	textExtractor := ocr.NewExtractor(visionClient)

	llm, err := extract.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini extractor")
	}

	pipe := pipeline.New(textExtractor, llm, store, objects, log)

	// Job infrastructure for asynchronous receipt processing
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.IngestReceiptJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("userId", job.UserID).
			Str("image_uri", job.ImageURI).
			Msg("Processing receipt job")

		result, err := pipe.IngestReceipt(ctx, job.UserID, job.ImageURI)
		if err != nil {
			return err
		}

		if result.IsDuplicate {
			log.Info().
				Str("job_id", job.JobID).
				Msg("Receipt job found a duplicate transaction")
		}
		return nil
	}

	go func() {
		log.Info().Msg("Starting receipt job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Receipt job worker stopped with error")
		}
	}()

	transactionsHandler := handlers.NewTransactionsHandler(pipe, store, log)
	receiptsHandler := handlers.NewReceiptsHandler(objects, jobQueue, jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions/text", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.IngestText(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/receipt", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.IngestReceipt(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}

		switch r.Method {
		case http.MethodGet:
			transactionsHandler.Get(w, r, transactionID)
		case http.MethodPatch:
			transactionsHandler.Update(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.Submit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			receiptsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			receiptsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.CORS(mux),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
