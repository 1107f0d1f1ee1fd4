// Package jobs defines the asynchronous receipt-ingestion job model and its
// queue abstractions.
package jobs

import (
	"context"
	"time"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IngestReceiptJob asks a worker to run the ingestion pipeline for a receipt
// image waiting in object storage.
//
// Receipt jobs are not retried: the pipeline deletes the temporary image on
// every exit, so a second attempt would have nothing to fetch. Callers that
// want another try must re-upload and resubmit.
type IngestReceiptJob struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	ImageURI string `json:"image_uri"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds failure details once Status is failed.
	Error string `json:"error,omitempty"`
}

// Publisher enqueues receipt-ingestion jobs.
type Publisher interface {
	PublishIngestReceipt(ctx context.Context, job *IngestReceiptJob) error
	Close() error
}

// Consumer drains the queue, calling the handler once per job.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Handler processes one job. A returned error marks the job failed.
type Handler func(ctx context.Context, job *IngestReceiptJob) error

// Store tracks job state so callers can poll progress.
type Store interface {
	SaveJob(ctx context.Context, job *IngestReceiptJob) error
	GetJob(ctx context.Context, jobID string) (*IngestReceiptJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*IngestReceiptJob, error)
}

// Filter narrows ListJobs results.
type Filter struct {
	UserID string
	Status JobStatus
	Limit  int
}
