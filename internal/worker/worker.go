// Package worker consumes ingest jobs from the queue and runs them
// through the pipeline.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bionexus/backend/internal/queue"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/ocr"
	"github.com/bionexus/backend/pkg/pipeline"
)

const (
	// ModeSample ingests a small fixed slice of the corpus for smoke runs.
	ModeSample = "sample"
	// ModeFull ingests everything under the full/ prefix.
	ModeFull = "full"

	sampleLimit = 3
)

// Corpus is the slice of the object store the worker needs.
type Corpus interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Worker ties the queue, the corpus bucket and the pipeline together.
type Worker struct {
	Queue    *queue.Queue
	Corpus   Corpus
	Pipeline *pipeline.Pipeline
}

// Ingest resolves the batch for the job and runs it through the pipeline.
// Explicit object keys win; otherwise the mode names the bucket prefix to
// list, with sample mode capped to a handful of documents. A failed
// download becomes a failed document, but a batch that cannot be resolved
// at all fails the job.
func (w *Worker) Ingest(ctx context.Context, jobID string, mode string, objectKeys []string) error {
	if len(objectKeys) == 0 {
		resolved, err := w.resolveMode(ctx, mode)
		if err != nil {
			if failErr := w.Pipeline.Fail(ctx, jobID, err); failErr != nil {
				logger.Error("[Worker] Could not mark job failed", "job", jobID, "error", failErr)
			}
			return err
		}
		objectKeys = resolved
	}

	docs := make([]ocr.Document, 0, len(objectKeys))
	for _, key := range objectKeys {
		data, err := w.Corpus.GetObject(ctx, key)
		if err != nil {
			logger.Error("[Worker] Download failed", "job", jobID, "object", key, "error", err)
		}
		// nil data fails in OCR and is counted against the job
		docs = append(docs, ocr.Document{Name: key, Data: data})
	}
	return w.Pipeline.Run(ctx, jobID, docs)
}

func (w *Worker) resolveMode(ctx context.Context, mode string) ([]string, error) {
	if mode == "" {
		mode = ModeSample
	}
	if mode != ModeSample && mode != ModeFull {
		return nil, fmt.Errorf("unknown ingest mode %q", mode)
	}

	keys, err := w.Corpus.ListObjects(ctx, mode+"/")
	if err != nil {
		return nil, fmt.Errorf("list corpus under %s/: %w", mode, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no documents under %s/", mode)
	}
	if mode == ModeSample && len(keys) > sampleLimit {
		keys = keys[:sampleLimit]
	}
	return keys, nil
}

// Run consumes the ingest queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.Queue.Consume()
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	logger.Info("[Worker] Consuming ingest queue")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *Worker) handle(ctx context.Context, delivery amqp.Delivery) {
	var message queue.IngestMessage
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		logger.Error("[Worker] Malformed message, dead lettering", "error", err)
		if err := delivery.Nack(false, false); err != nil {
			logger.Error("[Worker] Nack failed", "error", err)
		}
		return
	}

	if err := w.Ingest(ctx, message.JobID, message.Mode, message.ObjectKeys); err != nil {
		logger.Error("[Worker] Job failed, scheduling retry",
			"job", message.JobID, "retries", queue.RetryCount(delivery), "error", err)
		if err := w.Queue.Retry(ctx, delivery); err != nil {
			logger.Error("[Worker] Retry failed", "job", message.JobID, "error", err)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		logger.Error("[Worker] Ack failed", "job", message.JobID, "error", err)
	}
	logger.Info("[Worker] Job done", "job", message.JobID)
}
