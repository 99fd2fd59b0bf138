package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bionexus/backend/internal/config"
	"github.com/bionexus/backend/internal/queue"
	"github.com/bionexus/backend/internal/storage"
	"github.com/bionexus/backend/internal/worker"
	"github.com/bionexus/backend/pkg/embed"
	"github.com/bionexus/backend/pkg/extract"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/logger/console"
	"github.com/bionexus/backend/pkg/ocr"
	"github.com/bionexus/backend/pkg/pipeline"
)

func main() {
	cfg := config.Load()
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Prefix: "bionexus-worker",
		Debug:  cfg.Debug,
	}))

	if cfg.QueueURL == "" {
		logger.Fatal("[Main] RABBITMQ_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cfg.BuildAIClient()
	if err != nil {
		logger.Fatal("[Main] AI client setup failed", "error", err)
	}
	graph, err := cfg.BuildGraphStore(ctx)
	if err != nil {
		logger.Fatal("[Main] Graph store setup failed", "error", err)
	}
	defer graph.Close(ctx)

	index, err := cfg.BuildVectorIndex(ctx)
	if err != nil {
		logger.Fatal("[Main] Vector index setup failed", "error", err)
	}
	defer index.Close(ctx)

	jobStore, err := cfg.BuildJobStore(ctx)
	if err != nil {
		logger.Fatal("[Main] Job store setup failed", "error", err)
	}
	defer jobStore.Close(ctx)

	corpus, err := storage.NewCorpusStore(ctx, storage.CorpusStoreParams{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		logger.Fatal("[Main] Corpus store setup failed", "error", err)
	}

	q, err := queue.Connect(cfg.QueueURL, cfg.QueueName)
	if err != nil {
		logger.Fatal("[Main] Queue setup failed", "error", err)
	}
	defer q.Close()

	w := &worker.Worker{
		Queue:  q,
		Corpus: corpus,
		Pipeline: pipeline.NewPipeline(pipeline.PipelineParams{
			Engine:        ocr.NewVisionEngine(ocr.VisionEngineParams{Client: client}),
			Extractor:     extract.NewExtractor(client),
			Canonicalizer: extract.NewCanonicalizer(extract.CanonicalizerParams{}),
			Encoder:       embed.NewEncoder(client),
			Graph:         graph,
			Index:         index,
			JobStore:      jobStore,
		}),
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("[Main] Worker stopped", "error", err)
	}
	logger.Info("[Main] Worker shut down")
}
