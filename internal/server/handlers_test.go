package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/rag"
	"github.com/bionexus/backend/pkg/retrieval"
)

type fakeAIClient struct {
	completion string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.completion, nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not configured")
}

func (f *fakeAIClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return f.completion, nil
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not configured")
}

func (f *fakeAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	return nil, errors.New("not configured")
}

func (f *fakeAIClient) GenerateImageDescription(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return "", errors.New("not configured")
}

func (f *fakeAIClient) ResetMetrics() {}

func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newTestApp(t *testing.T) (*App, *graphstore.MemoryStore, *jobs.MemoryJobStore) {
	t.Helper()
	graph := graphstore.NewMemoryStore()
	jobStore := jobs.NewMemoryJobStore()
	retriever := retrieval.NewRetriever(graph, nil, nil)

	app := &App{
		Graph:     graph,
		JobStore:  jobStore,
		Retriever: retriever,
		RAG: rag.NewSynthesizer(rag.SynthesizerParams{
			Client:    &fakeAIClient{completion: "Grown at 42C [1]."},
			Retriever: retriever,
			Graph:     graph,
		}),
	}
	return app, graph, jobStore
}

func seedCorpus(t *testing.T, graph *graphstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	err := graph.CreatePublication(ctx, &common.Publication{
		PubID:     "pub_1",
		Title:     "Heat stress in Escherichia coli",
		Year:      2021,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
	err = graph.CreatePage(ctx, &common.Page{
		PageID:     "pub_1_p1",
		PubID:      "pub_1",
		PageNumber: 1,
		OCRText:    "Escherichia coli cultures were grown at 42C.",
	})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
}

func doRequest(app *App, method string, target string, body string) *httptest.ResponseRecorder {
	e := app.Router()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	app, _, _ := newTestApp(t)
	rec := doRequest(app, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	app, _, jobStore := newTestApp(t)

	var mu sync.Mutex
	var ingested []string
	app.Ingest = func(ctx context.Context, jobID string, mode string, objectKeys []string) error {
		mu.Lock()
		defer mu.Unlock()
		ingested = objectKeys
		return nil
	}

	rec := doRequest(app, http.MethodPost, "/api/ingest", `{"object_keys":["sample/a.pdf","sample/b.pdf"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" || resp.Status != "pending" {
		t.Errorf("unexpected response: %+v", resp)
	}

	job, err := jobStore.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not created: %v", err)
	}
	if job.TotalDocs != 2 {
		t.Errorf("expected 2 total docs, got %d", job.TotalDocs)
	}

	// the in-process ingest runs on a goroutine
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(ingested) == 2
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ingest callback never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleIngestMode(t *testing.T) {
	app, _, _ := newTestApp(t)

	var mu sync.Mutex
	var gotMode string
	done := make(chan struct{})
	app.Ingest = func(ctx context.Context, jobID string, mode string, objectKeys []string) error {
		mu.Lock()
		gotMode = mode
		mu.Unlock()
		close(done)
		return nil
	}

	rec := doRequest(app, http.MethodPost, "/api/ingest", `{"mode":"full"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingest callback never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if gotMode != "full" {
		t.Errorf("expected full mode, got %q", gotMode)
	}
}

func TestHandleIngestDefaultsToSampleMode(t *testing.T) {
	app, _, _ := newTestApp(t)

	var mu sync.Mutex
	var gotMode string
	done := make(chan struct{})
	app.Ingest = func(ctx context.Context, jobID string, mode string, objectKeys []string) error {
		mu.Lock()
		gotMode = mode
		mu.Unlock()
		close(done)
		return nil
	}

	rec := doRequest(app, http.MethodPost, "/api/ingest", `{}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingest callback never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if gotMode != "sample" {
		t.Errorf("expected sample mode by default, got %q", gotMode)
	}
}

func TestHandleIngestValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := doRequest(app, http.MethodPost, "/api/ingest", `{"mode":"partial"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown mode, got %d", rec.Code)
	}
}

func TestHandleIngestNotConfigured(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := doRequest(app, http.MethodPost, "/api/ingest", `{"object_keys":["a.pdf"]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without queue or ingest func, got %d", rec.Code)
	}
}

func TestHandleJobStatusNotFound(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := doRequest(app, http.MethodGet, "/api/ingest/unknown-job", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	app, graph, _ := newTestApp(t)
	seedCorpus(t, graph)

	rec := doRequest(app, http.MethodPost, "/api/search", `{"query":"42C"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].PageID != "pub_1_p1" {
		t.Errorf("unexpected result: %+v", resp.Results[0])
	}

	rec = doRequest(app, http.MethodPost, "/api/search", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestHandleRAG(t *testing.T) {
	app, graph, _ := newTestApp(t)
	seedCorpus(t, graph)

	rec := doRequest(app, http.MethodPost, "/api/rag", `{"question":"What temperature?","pub_id":"pub_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var answer common.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Answer == "" {
		t.Error("empty answer")
	}
	if len(answer.Citations) != 1 {
		t.Errorf("expected 1 citation, got %d", len(answer.Citations))
	}
}

func TestHandleStats(t *testing.T) {
	app, graph, _ := newTestApp(t)
	seedCorpus(t, graph)

	rec := doRequest(app, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats graphstore.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Publications != 1 || stats.Pages != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
