// Package retrieval answers search queries against the graph and the
// vector index.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/bionexus/backend/internal/util"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/embed"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/vecindex"
)

const (
	snippetWindow   = 100
	snippetFallback = 200
	maxHitEntities  = 5

	scorePageMatch        = 1.0
	scorePublicationMatch = 0.9
	scoreEntityMatch      = 0.8
)

// Retriever runs keyword and semantic searches.
type Retriever struct {
	graph   graphstore.GraphStore
	index   vecindex.Index
	encoder *embed.Encoder
}

// NewRetriever creates a Retriever. The index and encoder may be nil when
// only keyword search is needed.
func NewRetriever(graph graphstore.GraphStore, index vecindex.Index, encoder *embed.Encoder) *Retriever {
	return &Retriever{graph: graph, index: index, encoder: encoder}
}

// Search runs the keyword cascade: page text matches first, then
// publication metadata, then entity names. The first level with hits
// wins; an exhausted cascade returns an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]common.RankedResult, error) {
	pageHits, err := r.graph.SearchPages(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	if len(pageHits) > 0 {
		results := make([]common.RankedResult, 0, len(pageHits))
		for _, hit := range pageHits {
			entities := hit.Entities
			if len(entities) > maxHitEntities {
				entities = entities[:maxHitEntities]
			}
			results = append(results, common.RankedResult{
				ID:       hit.Page.PageID,
				PubID:    hit.Publication.PubID,
				PageID:   hit.Page.PageID,
				Title:    hit.Publication.Title,
				Authors:  hit.Publication.Authors,
				Year:     hit.Publication.Year,
				Snippet:  MakeSnippet(hit.Page.OCRText, query),
				Score:    scorePageMatch,
				Entities: entities,
			})
		}
		return results, nil
	}

	pubs, err := r.graph.SearchPublications(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search publications: %w", err)
	}
	if len(pubs) > 0 {
		results := make([]common.RankedResult, 0, len(pubs))
		for _, pub := range pubs {
			results = append(results, common.RankedResult{
				ID:      pub.PubID,
				PubID:   pub.PubID,
				Title:   pub.Title,
				Authors: pub.Authors,
				Year:    pub.Year,
				Snippet: util.Truncate(pub.Abstract, snippetFallback),
				Score:   scorePublicationMatch,
			})
		}
		return results, nil
	}

	entityHits, err := r.graph.SearchEntities(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	results := make([]common.RankedResult, 0, len(entityHits))
	for _, hit := range entityHits {
		result := common.RankedResult{
			ID:       hit.Entity.EntityID,
			PageID:   hit.PageID,
			Score:    scoreEntityMatch,
			Entities: []string{hit.Entity.Name},
		}
		if len(hit.Entity.Mentions) > 0 {
			result.Snippet = util.Truncate(hit.Entity.Mentions[0].Context, snippetFallback)
		}
		if hit.Publication != nil {
			result.PubID = hit.Publication.PubID
			result.Title = hit.Publication.Title
			result.Authors = hit.Publication.Authors
			result.Year = hit.Publication.Year
		}
		results = append(results, result)
	}
	return results, nil
}

// SearchSemantic embeds the query and ranks pages by vector similarity.
func (r *Retriever) SearchSemantic(ctx context.Context, query string, topK int, threshold float64) ([]common.RankedResult, error) {
	if r.index == nil || r.encoder == nil {
		return nil, fmt.Errorf("semantic search is not configured")
	}

	vector, err := r.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.SearchByVector(ctx, vector, topK, threshold)
}

// SearchByVector ranks indexed pages against a prepared query vector.
func (r *Retriever) SearchByVector(ctx context.Context, vector []float32, topK int, threshold float64) ([]common.RankedResult, error) {
	hits, err := r.index.Search(ctx, vector, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]common.RankedResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, common.RankedResult{
			ID:      hit.Entry.ID,
			PubID:   hit.Entry.PubID,
			PageID:  hit.Entry.PageID,
			Title:   hit.Entry.Payload.Title,
			Authors: hit.Entry.Payload.Authors,
			Year:    hit.Entry.Payload.Year,
			Snippet: hit.Entry.Payload.Snippet,
			Score:   hit.Score,
		})
	}
	return results, nil
}

// MakeSnippet cuts a window around the first occurrence of the query in
// the text. When the query does not occur, the head of the text is used.
func MakeSnippet(text string, query string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return util.Truncate(text, snippetFallback)
	}

	start := idx - snippetWindow
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetWindow
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}
	return snippet
}
