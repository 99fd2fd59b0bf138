package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/bionexus/backend/pkg/ai"
)

// NexusOpenAIClient implements ai.NexusAIClient against OpenAI-compatible
// endpoints. It manages separate clients for embeddings, chat and vision
// so each concern can point at a different deployment.
type NexusOpenAIClient struct {
	embeddingModel  string
	completionModel string
	extractionModel string
	visionModel     string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string
	visionURL    string
	visionKey    string

	chatLock      *semaphore.Weighted
	embeddingLock *semaphore.Weighted
	visionLock    *semaphore.Weighted
	timeoutMin    int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
	VisionClient    *openai.Client
}

// NewNexusOpenAIClientParams defines the configuration for creating a
// NexusOpenAIClient. URL/key pairs may point at the same endpoint or at
// separate deployments per concern.
type NewNexusOpenAIClientParams struct {
	EmbeddingModel  string
	CompletionModel string
	ExtractionModel string
	VisionModel     string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string
	VisionURL    string
	VisionKey    string

	MaxConcurrentRequests int64
	TimeoutMinutes        int
}

// NewNexusOpenAIClient creates a client configured with the provided
// parameters.
func NewNexusOpenAIClient(
	params NewNexusOpenAIClientParams,
) *NexusOpenAIClient {
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 10
	}
	if params.TimeoutMinutes <= 0 {
		params.TimeoutMinutes = 5
	}

	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)
	visionClient := newOpenaiClient(params.VisionURL, params.VisionKey)

	return &NexusOpenAIClient{
		embeddingModel:  params.EmbeddingModel,
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,
		visionModel:     params.VisionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,
		visionURL:    params.VisionURL,
		visionKey:    params.VisionKey,

		chatLock:      semaphore.NewWeighted(params.MaxConcurrentRequests),
		embeddingLock: semaphore.NewWeighted(params.MaxConcurrentRequests),
		visionLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		timeoutMin:    params.TimeoutMinutes,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
		VisionClient:    visionClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
