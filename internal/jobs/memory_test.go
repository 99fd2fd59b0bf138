package jobs

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestMemoryJobStoreLifecycle(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	now := time.Now()

	job := &Job{
		JobID:     "6f1deb09-6a2f-44a0-9f4e-2f3f2b6a9d01",
		Status:    StatusPending,
		TotalDocs: 3,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, job); err == nil {
		t.Error("expected error on duplicate create")
	}

	job.Status = StatusRunning
	job.ProcessedDocs = 2
	job.FailedDocs = 1
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, job.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusRunning || got.ProcessedDocs != 2 || got.FailedDocs != 1 {
		t.Errorf("unexpected job state: %+v", got)
	}
	if math.Abs(got.Progress()-2.0/3.0) > 1e-9 {
		t.Errorf("expected progress 2/3, got %f", got.Progress())
	}

	_, err = store.Get(ctx, "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryJobStoreList(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	base := time.Now()

	for i, jobID := range []string{"a", "b", "c"} {
		err := store.Create(ctx, &Job{
			JobID:     jobID,
			Status:    StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		})
		if err != nil {
			t.Fatalf("create %s: %v", jobID, err)
		}
	}

	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(listed))
	}
	if listed[0].JobID != "c" || listed[1].JobID != "b" {
		t.Errorf("expected newest first, got %s then %s", listed[0].JobID, listed[1].JobID)
	}
}

func TestMemoryJobStoreDeleteBefore(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	err := store.Create(ctx, &Job{JobID: "done", Status: StatusCompleted, CreatedAt: old, UpdatedAt: old})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = store.Create(ctx, &Job{JobID: "stuck", Status: StatusRunning, CreatedAt: old, UpdatedAt: old})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := store.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted job, got %d", deleted)
	}
	// running jobs are never cleaned up
	if _, err := store.Get(ctx, "stuck"); err != nil {
		t.Errorf("running job was deleted: %v", err)
	}
}

func TestJobProgress(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want float64
	}{
		{"empty", Job{TotalDocs: 0}, 0},
		{"failures do not count", Job{TotalDocs: 3, ProcessedDocs: 1, FailedDocs: 1}, 1.0 / 3.0},
		{"all processed", Job{TotalDocs: 2, ProcessedDocs: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.Progress(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Progress() = %f, want %f", got, tt.want)
			}
		})
	}
}
