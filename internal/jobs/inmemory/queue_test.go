package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/expense-ledger/internal/jobs"
)

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	var mu sync.Mutex
	handled := make(map[string]bool)
	done := make(chan struct{})

	handler := func(ctx context.Context, job *jobs.IngestReceiptJob) error {
		mu.Lock()
		handled[job.ImageURI] = true
		mu.Unlock()
		close(done)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.IngestReceiptJob{UserID: "user-1", ImageURI: "gs://b/r.jpg"}
	if err := q.PublishIngestReceipt(ctx, job); err != nil {
		t.Fatalf("PublishIngestReceipt() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	mu.Lock()
	defer mu.Unlock()
	if !handled["gs://b/r.jpg"] {
		t.Error("handler did not receive the job")
	}
	if job.JobID == "" {
		t.Error("publish should assign a job ID")
	}
}

func TestQueueMarksFailedJobWithoutRetry(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})

	handler := func(ctx context.Context, job *jobs.IngestReceiptJob) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(done)
		return errors.New("ocr unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.IngestReceiptJob{UserID: "user-1", ImageURI: "gs://b/r.jpg"}
	if err := q.PublishIngestReceipt(ctx, job); err != nil {
		t.Fatalf("PublishIngestReceipt() error = %v", err)
	}

	<-done
	// Give processJob time to record the final status.
	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, err := store.GetJob(ctx, job.JobID)
		if err == nil && saved.Status == jobs.JobStatusFailed {
			if saved.Error == "" {
				t.Error("failed job should carry the handler error")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never reached failed status")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1 (no retries for receipt jobs)", calls)
	}
}

func TestStoreListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	seed := []*jobs.IngestReceiptJob{
		{JobID: "a", UserID: "user-1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", UserID: "user-1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Second)},
		{JobID: "c", UserID: "user-2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", j.JobID, err)
		}
	}

	got, err := store.ListJobs(ctx, jobs.Filter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListJobs(user-1) = %d jobs, want 2", len(got))
	}
	if got[0].JobID != "b" {
		t.Errorf("newest-first ordering broken, got %s first", got[0].JobID)
	}

	got, err = store.ListJobs(ctx, jobs.Filter{Status: jobs.JobStatusCompleted, Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("limit not applied, got %d jobs", len(got))
	}
}
