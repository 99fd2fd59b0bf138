package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/embed"
	"github.com/bionexus/backend/pkg/extract"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/ocr"
	"github.com/bionexus/backend/pkg/pipeline"
	"github.com/bionexus/backend/pkg/vecindex"
)

// fakeCorpus serves canned objects and prefix listings.
type fakeCorpus struct {
	objects map[string][]byte
	keys    map[string][]string
	listErr error
}

func (f *fakeCorpus) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeCorpus) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.keys[prefix], nil
}

// fakeEngine succeeds on any document that carries data.
type fakeEngine struct{}

func (f *fakeEngine) Process(ctx context.Context, doc ocr.Document) ([]ocr.PageResult, error) {
	if len(doc.Data) == 0 {
		return nil, errors.New("empty document")
	}
	return []ocr.PageResult{{PageNumber: 1, Text: string(doc.Data), Confidence: 0.9}}, nil
}

type fakeAIClient struct{}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not configured")
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not configured")
}

func (f *fakeAIClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not configured")
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeAIClient) GenerateImageDescription(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return "", errors.New("not configured")
}

func (f *fakeAIClient) ResetMetrics() {}

func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newTestWorker(corpus Corpus) (*Worker, *jobs.MemoryJobStore) {
	jobStore := jobs.NewMemoryJobStore()
	w := &Worker{
		Corpus: corpus,
		Pipeline: pipeline.NewPipeline(pipeline.PipelineParams{
			Engine:    &fakeEngine{},
			Extractor: extract.NewExtractor(nil),
			Encoder:   embed.NewEncoder(&fakeAIClient{}),
			Graph:     graphstore.NewMemoryStore(),
			Index:     vecindex.NewMemoryIndex(),
			JobStore:  jobStore,
		}),
	}
	return w, jobStore
}

func createJob(t *testing.T, jobStore *jobs.MemoryJobStore, jobID string) {
	t.Helper()
	now := time.Now()
	err := jobStore.Create(context.Background(), &jobs.Job{
		JobID:     jobID,
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
}

func TestIngestSampleModeResolvesAndCapsListing(t *testing.T) {
	corpus := &fakeCorpus{
		objects: map[string][]byte{
			"sample/a.pdf": []byte("Study one. Some content."),
			"sample/b.pdf": []byte("Study two. Some content."),
			"sample/c.pdf": []byte("Study three. Some content."),
			"sample/d.pdf": []byte("Study four. Some content."),
		},
		keys: map[string][]string{
			"sample/": {"sample/a.pdf", "sample/b.pdf", "sample/c.pdf", "sample/d.pdf"},
		},
	}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	if err := w.Ingest(context.Background(), "job_1", "sample", nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	job, err := jobStore.Get(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != jobs.StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	// sample mode takes at most 3 documents from the listing
	if job.TotalDocs != 3 || job.ProcessedDocs != 3 {
		t.Errorf("expected 3 of 3 processed, got %d of %d", job.ProcessedDocs, job.TotalDocs)
	}
}

func TestIngestFullMode(t *testing.T) {
	corpus := &fakeCorpus{
		objects: map[string][]byte{
			"full/a.pdf": []byte("Study one. Some content."),
			"full/b.pdf": []byte("Study two. Some content."),
		},
		keys: map[string][]string{
			"full/": {"full/a.pdf", "full/b.pdf"},
		},
	}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	if err := w.Ingest(context.Background(), "job_1", "full", nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	job, _ := jobStore.Get(context.Background(), "job_1")
	if job.TotalDocs != 2 || job.ProcessedDocs != 2 {
		t.Errorf("expected 2 of 2 processed, got %d of %d", job.ProcessedDocs, job.TotalDocs)
	}
}

func TestIngestExplicitKeysSkipListing(t *testing.T) {
	corpus := &fakeCorpus{
		objects: map[string][]byte{
			"sample/a.pdf": []byte("Study one. Some content."),
		},
		listErr: errors.New("listing must not be called"),
	}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	err := w.Ingest(context.Background(), "job_1", "", []string{"sample/a.pdf"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	job, _ := jobStore.Get(context.Background(), "job_1")
	if job.ProcessedDocs != 1 {
		t.Errorf("expected 1 processed doc, got %d", job.ProcessedDocs)
	}
}

func TestIngestListingFailureFailsJob(t *testing.T) {
	corpus := &fakeCorpus{listErr: errors.New("bucket unreachable")}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	if err := w.Ingest(context.Background(), "job_1", "full", nil); err == nil {
		t.Fatal("expected an error when the corpus cannot be listed")
	}

	job, _ := jobStore.Get(context.Background(), "job_1")
	if job.Status != jobs.StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected an error message on the job")
	}
}

func TestIngestUnknownMode(t *testing.T) {
	corpus := &fakeCorpus{}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	if err := w.Ingest(context.Background(), "job_1", "partial", nil); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}

	job, _ := jobStore.Get(context.Background(), "job_1")
	if job.Status != jobs.StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
}

func TestIngestFailedDownloadCountsAgainstJob(t *testing.T) {
	corpus := &fakeCorpus{
		objects: map[string][]byte{
			"sample/a.pdf": []byte("Study one. Some content."),
		},
		keys: map[string][]string{
			"sample/": {"sample/a.pdf", "sample/missing.pdf"},
		},
	}
	w, jobStore := newTestWorker(corpus)
	createJob(t, jobStore, "job_1")

	if err := w.Ingest(context.Background(), "job_1", "sample", nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	job, _ := jobStore.Get(context.Background(), "job_1")
	if job.Status != jobs.StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.ProcessedDocs != 1 || job.FailedDocs != 1 {
		t.Errorf("expected 1 processed and 1 failed, got %d and %d", job.ProcessedDocs, job.FailedDocs)
	}
}
