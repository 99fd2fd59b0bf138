package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/bionexus/backend/pkg/ai"
)

// NexusOllamaClient implements ai.NexusAIClient using Ollama as the backend.
// It supports text generation, embeddings and vision-based page
// transcription via locally-hosted models.
type NexusOllamaClient struct {
	embeddingModel  string
	completionModel string
	extractionModel string
	visionModel     string

	reqLock    *semaphore.Weighted
	timeoutMin int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewNexusOllamaClientParams contains configuration options for creating a
// new NexusOllamaClient.
type NewNexusOllamaClientParams struct {
	EmbeddingModel  string
	CompletionModel string
	ExtractionModel string
	VisionModel     string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	TimeoutMinutes        int
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewNexusOllamaClient creates an Ollama-based AI client connecting to the
// server at BaseURL (or the default if empty).
func NewNexusOllamaClient(
	params NewNexusOllamaClientParams,
) (*NexusOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 10
	}
	if params.TimeoutMinutes <= 0 {
		params.TimeoutMinutes = 5
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	return &NexusOllamaClient{
		embeddingModel:  params.EmbeddingModel,
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,
		visionModel:     params.VisionModel,

		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		timeoutMin: params.TimeoutMinutes,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
