package main

import (
	"context"

	"github.com/bionexus/backend/internal/config"
	"github.com/bionexus/backend/internal/queue"
	"github.com/bionexus/backend/internal/server"
	"github.com/bionexus/backend/internal/storage"
	"github.com/bionexus/backend/internal/worker"
	"github.com/bionexus/backend/pkg/embed"
	"github.com/bionexus/backend/pkg/extract"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/logger/console"
	"github.com/bionexus/backend/pkg/ocr"
	"github.com/bionexus/backend/pkg/pipeline"
	"github.com/bionexus/backend/pkg/rag"
	"github.com/bionexus/backend/pkg/retrieval"
)

func main() {
	cfg := config.Load()
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Prefix: "bionexus",
		Debug:  cfg.Debug,
	}))

	ctx := context.Background()

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

	encoder := embed.NewEncoder(client)
	retriever := retrieval.NewRetriever(graph, index, encoder)

	app := &server.App{
		Graph:     graph,
		JobStore:  jobStore,
		Retriever: retriever,
		RAG: rag.NewSynthesizer(rag.SynthesizerParams{
			Client:    client,
			Retriever: retriever,
			Graph:     graph,
		}),
	}

	if cfg.QueueURL != "" {
		q, err := queue.Connect(cfg.QueueURL, cfg.QueueName)
		if err != nil {
			logger.Fatal("[Main] Queue setup failed", "error", err)
		}
		defer q.Close()
		app.Queue = q
	} else {
		// single-process mode: ingest in this process instead of a worker
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
		w := &worker.Worker{
			Corpus: corpus,
			Pipeline: pipeline.NewPipeline(pipeline.PipelineParams{
				Engine:        ocr.NewVisionEngine(ocr.VisionEngineParams{Client: client}),
				Extractor:     extract.NewExtractor(client),
				Canonicalizer: extract.NewCanonicalizer(extract.CanonicalizerParams{}),
				Encoder:       encoder,
				Graph:         graph,
				Index:         index,
				JobStore:      jobStore,
			}),
		}
		app.Ingest = w.Ingest
	}

	if err := app.Start(cfg.Port); err != nil {
		logger.Fatal("[Main] Server stopped", "error", err)
	}
}
