// Package config loads the deployment configuration from the environment
// and builds the backing services from it.
package config

import (
	"context"
	"fmt"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/internal/util"
	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/ai/ollama"
	"github.com/bionexus/backend/pkg/ai/openai"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/vecindex"
)

// Config mirrors the environment variables of one deployment.
type Config struct {
	Port  int
	Debug bool

	AIProvider      string
	AIBaseURL       string
	AIKey           string
	EmbeddingModel  string
	CompletionModel string
	ExtractionModel string
	VisionModel     string
	EmbedDimensions int

	GraphBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	VectorBackend    string
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantCollection string

	JobBackend  string
	DatabaseURL string

	QueueURL  string
	QueueName string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// Load reads the configuration from the environment, applying defaults
// suitable for local development.
func Load() Config {
	util.LoadEnv()

	return Config{
		Port:  int(util.GetEnvNumeric("PORT", 8080)),
		Debug: util.GetEnvBool("DEBUG", false),

		AIProvider:      util.GetEnvString("AI_PROVIDER", "ollama"),
		AIBaseURL:       util.GetEnv("AI_BASE_URL"),
		AIKey:           util.GetEnv("AI_API_KEY"),
		EmbeddingModel:  util.GetEnvString("AI_EMBED_MODEL", "nomic-embed-text"),
		CompletionModel: util.GetEnvString("AI_COMPLETION_MODEL", "llama3.1"),
		ExtractionModel: util.GetEnvString("AI_EXTRACTION_MODEL", "llama3.1"),
		VisionModel:     util.GetEnvString("AI_VISION_MODEL", "llava"),
		EmbedDimensions: int(util.GetEnvNumeric("AI_EMBED_DIM", 1024)),

		GraphBackend:  util.GetEnvString("GRAPH_BACKEND", "memory"),
		Neo4jURI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     util.GetEnvString("NEO4J_USER", "neo4j"),
		Neo4jPassword: util.GetEnv("NEO4J_PASSWORD"),

		VectorBackend:    util.GetEnvString("VECTOR_BACKEND", "memory"),
		QdrantHost:       util.GetEnvString("QDRANT_HOST", "localhost"),
		QdrantPort:       int(util.GetEnvNumeric("QDRANT_PORT", 6334)),
		QdrantAPIKey:     util.GetEnv("QDRANT_API_KEY"),
		QdrantCollection: util.GetEnvString("QDRANT_COLLECTION", "bionexus_pages"),

		JobBackend:  util.GetEnvString("JOB_BACKEND", "memory"),
		DatabaseURL: util.GetEnv("DATABASE_URL"),

		QueueURL:  util.GetEnv("RABBITMQ_URL"),
		QueueName: util.GetEnvString("INGEST_QUEUE", "bionexus_ingest"),

		S3Endpoint:  util.GetEnv("S3_ENDPOINT"),
		S3Region:    util.GetEnvString("S3_REGION", "us-east-1"),
		S3Bucket:    util.GetEnvString("S3_BUCKET", "bionexus-corpus"),
		S3AccessKey: util.GetEnv("S3_ACCESS_KEY"),
		S3SecretKey: util.GetEnv("S3_SECRET_KEY"),
	}
}

// BuildAIClient creates the AI client for the configured provider.
func (c Config) BuildAIClient() (ai.NexusAIClient, error) {
	switch c.AIProvider {
	case "openai":
		return openai.NewNexusOpenAIClient(openai.NewNexusOpenAIClientParams{
			EmbeddingModel:  c.EmbeddingModel,
			CompletionModel: c.CompletionModel,
			ExtractionModel: c.ExtractionModel,
			VisionModel:     c.VisionModel,
			EmbeddingURL:    c.AIBaseURL,
			EmbeddingKey:    c.AIKey,
			ChatURL:         c.AIBaseURL,
			ChatKey:         c.AIKey,
			VisionURL:       c.AIBaseURL,
			VisionKey:       c.AIKey,
		}), nil
	case "ollama":
		return ollama.NewNexusOllamaClient(ollama.NewNexusOllamaClientParams{
			EmbeddingModel:  c.EmbeddingModel,
			CompletionModel: c.CompletionModel,
			ExtractionModel: c.ExtractionModel,
			VisionModel:     c.VisionModel,
			BaseURL:         c.AIBaseURL,
			ApiKey:          c.AIKey,
		})
	default:
		return nil, fmt.Errorf("unknown AI provider %q", c.AIProvider)
	}
}

// BuildGraphStore creates the configured graph backend.
func (c Config) BuildGraphStore(ctx context.Context) (graphstore.GraphStore, error) {
	switch c.GraphBackend {
	case "neo4j":
		store, err := graphstore.NewNeo4jStore(ctx, graphstore.Neo4jStoreParams{
			URI:      c.Neo4jURI,
			Username: c.Neo4jUser,
			Password: c.Neo4jPassword,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		logger.Warn("[Config] Using in-memory graph store, data is not persisted")
		return graphstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", c.GraphBackend)
	}
}

// BuildVectorIndex creates the configured vector backend.
func (c Config) BuildVectorIndex(ctx context.Context) (vecindex.Index, error) {
	switch c.VectorBackend {
	case "qdrant":
		return vecindex.NewQdrantIndex(ctx, vecindex.QdrantIndexParams{
			Host:       c.QdrantHost,
			Port:       c.QdrantPort,
			APIKey:     c.QdrantAPIKey,
			Collection: c.QdrantCollection,
			Dimensions: uint64(c.EmbedDimensions),
		})
	case "memory":
		logger.Warn("[Config] Using in-memory vector index, data is not persisted")
		return vecindex.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", c.VectorBackend)
	}
}

// BuildJobStore creates the configured job backend.
func (c Config) BuildJobStore(ctx context.Context) (jobs.JobStore, error) {
	switch c.JobBackend {
	case "postgres":
		return jobs.NewPostgresJobStore(ctx, c.DatabaseURL)
	case "memory":
		return jobs.NewMemoryJobStore(), nil
	default:
		return nil, fmt.Errorf("unknown job backend %q", c.JobBackend)
	}
}
