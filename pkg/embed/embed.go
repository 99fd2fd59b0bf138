// Package embed turns pages and queries into normalized embedding vectors.
package embed

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/logger"
)

const visualSummaryPrompt = "Summarize the visual content of this scientific page image in two sentences. Focus on figures, plots and tables."

// Encoder produces embedding vectors for indexing and search.
type Encoder struct {
	client ai.NexusAIClient
}

// NewEncoder creates an Encoder backed by the given AI client.
func NewEncoder(client ai.NexusAIClient) *Encoder {
	return &Encoder{client: client}
}

// EncodePage embeds a page from its OCR text, enriched with a short visual
// summary when a rendered page image is available. A failing visual summary
// falls back to text only.
func (e *Encoder) EncodePage(ctx context.Context, text string, image []byte) ([]float32, error) {
	input := strings.TrimSpace(text)

	if len(image) > 0 {
		summary, err := e.client.GenerateImageDescription(ctx, visualSummaryPrompt, image, "image/png")
		if err != nil {
			logger.Debug("[Embed] Visual summary failed, embedding text only", "error", err)
		} else if summary != "" {
			input = input + "\n" + summary
		}
	}

	if input == "" {
		return nil, errors.New("nothing to embed: empty page text and no visual summary")
	}
	return e.encode(ctx, input)
}

// EncodeQuery embeds a search query.
func (e *Encoder) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("nothing to embed: empty query")
	}
	return e.encode(ctx, query)
}

func (e *Encoder) encode(ctx context.Context, input string) ([]float32, error) {
	vector, err := e.client.GenerateEmbedding(ctx, []byte(input))
	if err != nil {
		return nil, err
	}
	return Normalize(vector), nil
}

// Normalize scales a vector to unit length. Zero vectors pass through
// unchanged.
func Normalize(vector []float32) []float32 {
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
